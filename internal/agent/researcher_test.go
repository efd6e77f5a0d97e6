package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResearcher 把白名单和起始URL都指向httptest服务器
func newTestResearcher(t *testing.T, server *httptest.Server, maxPages int) *WebResearcher {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	return NewWebResearcher(
		WithAllowedDomains([]string{u.Host}),
		WithMaxPages(maxPages),
		WithResearchHTTPClient(server.Client()),
		WithSeedURL(func(query string) string {
			return server.URL + "/wiki/" + url.PathEscape(query)
		}),
	)
}

// TestResearchSelectorCascade 正文定位按选择器级联，article 页面也能提取
func TestResearchSelectorCascade(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/golang", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Golang</title></head>
<body><article>Go is a statically typed language designed at Google.</article></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := newTestResearcher(t, server, 3)
	findings, err := r.Research(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, findings, 1)

	assert.Equal(t, "Golang", findings[0].Title)
	assert.Contains(t, findings[0].Summary, "statically typed")
}

// TestResearchMetaDescriptionFallback 选择器全部落空时回退到meta描述
func TestResearchMetaDescriptionFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/topic", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Topic</title>
<meta name="description" content="A fallback description of the topic."></head>
<body><p>plain body</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := newTestResearcher(t, server, 1)
	findings, err := r.Research(context.Background(), "topic")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "A fallback description of the topic.", findings[0].Summary)
}

// TestResearchFollowsLinksWithinBudget BFS沿站内链接扩展，受页面预算约束
func TestResearchFollowsLinksWithinBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/start", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Start</title></head>
<body><main>start page</main>
<a href="/wiki/second">second</a>
<a href="/wiki/third">third</a>
<a href="https://evil.example.com/outside">outside</a></body></html>`)
	})
	mux.HandleFunc("/wiki/second", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Second</title></head><body><main>second page</main></body></html>`)
	})
	mux.HandleFunc("/wiki/third", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Third</title></head><body><main>third page</main></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := newTestResearcher(t, server, 2)
	findings, err := r.Research(context.Background(), "start")
	require.NoError(t, err)

	// 预算为2：起始页 + 第一个站内链接；白名单外的链接不入队
	require.Len(t, findings, 2)
	assert.Equal(t, "Start", findings[0].Title)
	assert.Equal(t, "Second", findings[1].Title)
}

// TestResearchDomainWhitelist 白名单外的起始页直接失败
func TestResearchDomainWhitelist(t *testing.T) {
	r := NewWebResearcher(
		WithAllowedDomains([]string{"en.wikipedia.org"}),
		WithSeedURL(func(query string) string {
			return "https://evil.example.com/" + query
		}),
	)

	_, err := r.Research(context.Background(), "anything")
	assert.Error(t, err, "白名单外的页面不应被抓取")
}

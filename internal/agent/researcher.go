package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/types"
)

// contentSelectors 正文定位的选择器级联，按顺序尝试
var contentSelectors = []string{
	"div.content",
	"article",
	"main",
	"div[class*=content]",
	"div[id*=content]",
}

const (
	defaultMaxPages     = 3
	defaultFetchTimeout = 10 * time.Second
	maxSummaryRunes     = 500
)

// WebResearcher 对白名单域名做小规模的广度优先抓取
// 每次调研创建一个新实例，visited 集合不跨查询复用
type WebResearcher struct {
	httpClient     *http.Client
	allowedDomains map[string]bool
	maxPages       int
	seedURL        func(query string) string
}

// ResearcherOption WebResearcher 的配置选项
type ResearcherOption func(*WebResearcher)

// WithAllowedDomains 覆盖允许抓取的域名白名单
func WithAllowedDomains(domains []string) ResearcherOption {
	return func(r *WebResearcher) {
		r.allowedDomains = make(map[string]bool, len(domains))
		for _, d := range domains {
			r.allowedDomains[strings.ToLower(d)] = true
		}
	}
}

// WithMaxPages 设置单次调研最多抓取的页面数
func WithMaxPages(n int) ResearcherOption {
	return func(r *WebResearcher) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// WithResearchHTTPClient 替换底层HTTP客户端，主要用于测试
func WithResearchHTTPClient(c *http.Client) ResearcherOption {
	return func(r *WebResearcher) {
		r.httpClient = c
	}
}

// WithSeedURL 覆盖起始URL的构造方式，主要用于测试
func WithSeedURL(fn func(query string) string) ResearcherOption {
	return func(r *WebResearcher) {
		r.seedURL = fn
	}
}

// NewWebResearcher 创建一个新的调研实例
func NewWebResearcher(options ...ResearcherOption) *WebResearcher {
	r := &WebResearcher{
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		allowedDomains: map[string]bool{
			"en.wikipedia.org": true,
			"www.nature.com":   true,
		},
		maxPages: defaultMaxPages,
	}
	r.seedURL = func(query string) string {
		// 维基百科条目URL用下划线替代空格
		return "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "_"))
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Name 返回代理标识
func (r *WebResearcher) Name() string { return "WebResearcher" }

// Research 以查询词为起点做广度优先抓取，返回每个页面的摘要
func (r *WebResearcher) Research(ctx context.Context, query string) ([]types.ResearchFinding, error) {
	seed := r.seedURL(query)

	queue := []string{seed}
	visited := make(map[string]bool)
	var findings []types.ResearchFinding

	for len(queue) > 0 && len(findings) < r.maxPages {
		pageURL := queue[0]
		queue = queue[1:]

		if visited[pageURL] || !r.isAllowed(pageURL) {
			continue
		}
		visited[pageURL] = true

		finding, links, err := r.fetchPage(ctx, pageURL)
		if err != nil {
			// 单页失败只告警，继续处理队列中的其他页面
			logger.Ctx(ctx).Warn().Err(err).Str("url", pageURL).Msg("抓取调研页面失败")
			continue
		}

		findings = append(findings, *finding)
		for _, link := range links {
			if !visited[link] && r.isAllowed(link) {
				queue = append(queue, link)
			}
		}
	}

	if len(findings) == 0 {
		return nil, fmt.Errorf("没有抓取到关于 %q 的任何页面", query)
	}
	return findings, nil
}

// isAllowed 只允许白名单域名内的http(s)链接
func (r *WebResearcher) isAllowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return r.allowedDomains[strings.ToLower(u.Host)]
}

// fetchPage 抓取单个页面，返回摘要和页面上的站内链接
func (r *WebResearcher) fetchPage(ctx context.Context, pageURL string) (*types.ResearchFinding, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("创建抓取请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "careerstack-research/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("请求页面失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("页面返回状态 %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	summary := r.extractSummary(doc)

	base, _ := url.Parse(pageURL)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		abs, err := base.Parse(href)
		if err != nil {
			return
		}
		abs.Fragment = ""
		links = append(links, abs.String())
	})

	return &types.ResearchFinding{
		Title:   title,
		URL:     pageURL,
		Summary: summary,
	}, links, nil
}

// extractSummary 按选择器级联定位正文，全部落空时回退到meta描述
func (r *WebResearcher) extractSummary(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return truncateRunes(collapseWhitespace(text), maxSummaryRunes)
		}
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return truncateRunes(strings.TrimSpace(desc), maxSummaryRunes)
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

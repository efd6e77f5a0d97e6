package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qween-beth/careerstack/internal/types"
)

// JobSource 定义了一个外部职位来源
// 实现方负责把自己的返回格式归一化为 types.JobListing
type JobSource interface {
	// Name 返回来源的标识，用于日志和结果标注
	Name() string
	// Search 按职位和地点搜索，limit 是本来源的最大返回条数
	Search(ctx context.Context, position, location string, limit int) ([]types.JobListing, error)
}

const (
	hnAlgoliaBaseURL     = "https://hn.algolia.com/api/v1/search"
	indeedAPIBaseURL     = "https://api.indeed.com/ads/apisearch"
	defaultSourceTimeout = 10 * time.Second
)

// --- Hacker News (Algolia) ---

// hnHit Algolia 返回的单条记录
type hnHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	CreatedAtI  int64  `json:"created_at_i"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	ObjectID    string `json:"objectID"`
}

// hnAlgoliaResponse Algolia 搜索接口的响应
type hnAlgoliaResponse struct {
	Hits   []hnHit `json:"hits"`
	NbHits int     `json:"nbHits"`
}

// HNJobsSource 从 Hacker News 的 Algolia 搜索接口抓取招聘贴
// 不需要任何API Key，是默认启用的来源
type HNJobsSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHNJobsSource 创建一个 Hacker News 职位来源
// baseURL 为空时使用官方 Algolia 端点
func NewHNJobsSource(baseURL string, client *http.Client) *HNJobsSource {
	if baseURL == "" {
		baseURL = hnAlgoliaBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultSourceTimeout}
	}
	return &HNJobsSource{baseURL: baseURL, httpClient: client}
}

// Name 实现 JobSource 接口
func (s *HNJobsSource) Name() string { return "hackernews" }

// Search 实现 JobSource 接口
func (s *HNJobsSource) Search(ctx context.Context, position, location string, limit int) ([]types.JobListing, error) {
	query := position + " hiring"
	if location != "" {
		query += " " + location
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("hitsPerPage", fmt.Sprintf("%d", limit))

	reqURL := s.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HN搜索请求失败: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求HN Algolia失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HN Algolia 返回状态 %s: %s", resp.Status, string(body))
	}

	var result hnAlgoliaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析HN Algolia响应失败: %w", err)
	}

	listings := make([]types.JobListing, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if hit.Title == "" {
			continue
		}
		desc := hit.StoryText
		if desc == "" {
			desc = hit.CommentText
		}
		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		listings = append(listings, types.JobListing{
			Position:    hit.Title,
			Company:     hit.Author,
			Location:    location,
			Description: strings.TrimSpace(desc),
			URL:         link,
			Source:      s.Name(),
		})
	}
	return listings, nil
}

// --- Indeed ---

// indeedResult Indeed Publisher API 的单条职位
type indeedResult struct {
	JobTitle          string `json:"jobtitle"`
	Company           string `json:"company"`
	FormattedLocation string `json:"formattedLocation"`
	Snippet           string `json:"snippet"`
	URL               string `json:"url"`
}

// indeedResponse Indeed Publisher API 的响应
type indeedResponse struct {
	TotalResults int            `json:"totalResults"`
	Results      []indeedResult `json:"results"`
}

// IndeedSource 通过 Indeed Publisher API 搜索职位
// 需要配置 INDEED_API_KEY，未配置时该来源不会被注册
type IndeedSource struct {
	publisherKey string
	baseURL      string
	httpClient   *http.Client
}

// NewIndeedSource 创建一个 Indeed 职位来源
func NewIndeedSource(publisherKey, baseURL string, client *http.Client) (*IndeedSource, error) {
	if strings.TrimSpace(publisherKey) == "" {
		return nil, fmt.Errorf("Indeed publisher key 不能为空")
	}
	if baseURL == "" {
		baseURL = indeedAPIBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultSourceTimeout}
	}
	return &IndeedSource{publisherKey: publisherKey, baseURL: baseURL, httpClient: client}, nil
}

// Name 实现 JobSource 接口
func (s *IndeedSource) Name() string { return "indeed" }

// Search 实现 JobSource 接口
func (s *IndeedSource) Search(ctx context.Context, position, location string, limit int) ([]types.JobListing, error) {
	params := url.Values{}
	params.Set("publisher", s.publisherKey)
	params.Set("q", position)
	params.Set("l", location)
	params.Set("format", "json")
	params.Set("v", "2")
	params.Set("limit", fmt.Sprintf("%d", limit))

	reqURL := s.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建Indeed搜索请求失败: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求Indeed API失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Indeed API 返回状态 %s: %s", resp.Status, string(body))
	}

	var result indeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析Indeed响应失败: %w", err)
	}

	listings := make([]types.JobListing, 0, len(result.Results))
	for _, r := range result.Results {
		if r.JobTitle == "" {
			continue
		}
		listings = append(listings, types.JobListing{
			Position:    r.JobTitle,
			Company:     r.Company,
			Location:    r.FormattedLocation,
			Description: strings.TrimSpace(r.Snippet),
			URL:         r.URL,
			Source:      s.Name(),
		})
	}
	return listings, nil
}

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/qween-beth/careerstack/internal/constants"
	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/types"
)

// searchQuery LLM查询改写的结果
type searchQuery struct {
	Position string `json:"position"`
	Location string `json:"location"`
}

// listingEvaluation LLM对单条职位的匹配度评估
type listingEvaluation struct {
	MatchScore     int      `json:"match_score"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// JobSearchAgent 负责职位搜索：查询改写 -> 多来源抓取 -> 针对简历逐条评分
type JobSearchAgent struct {
	llmModel     model.ToolCallingChatModel
	sources      []JobSource
	topN         int
	maxPerSource int
}

// JobSearchOption JobSearchAgent 的配置选项
type JobSearchOption func(*JobSearchAgent)

// WithTopN 设置最终返回的职位数
func WithTopN(n int) JobSearchOption {
	return func(a *JobSearchAgent) {
		if n > 0 {
			a.topN = n
		}
	}
}

// WithMaxPerSource 设置每个来源的最大抓取数
func WithMaxPerSource(n int) JobSearchOption {
	return func(a *JobSearchAgent) {
		if n > 0 {
			a.maxPerSource = n
		}
	}
}

// NewJobSearchAgent 创建职位搜索代理
// sources 至少应包含一个来源
func NewJobSearchAgent(llmModel model.ToolCallingChatModel, sources []JobSource, options ...JobSearchOption) *JobSearchAgent {
	agent := &JobSearchAgent{
		llmModel:     llmModel,
		sources:      sources,
		topN:         constants.DefaultJobTopN,
		maxPerSource: 10,
	}
	for _, opt := range options {
		opt(agent)
	}
	return agent
}

// Name 返回代理标识
func (a *JobSearchAgent) Name() string { return "JobSearchAgent" }

// Process 执行一次完整的职位搜索
// rc 可以为 nil，此时跳过针对简历的评分，按来源顺序返回
func (a *JobSearchAgent) Process(ctx context.Context, query string, rc *types.ResumeContext) ([]types.JobListing, error) {
	sq := a.rewriteQuery(ctx, query)

	var all []types.JobListing
	for _, src := range a.sources {
		listings, err := src.Search(ctx, sq.Position, sq.Location, a.maxPerSource)
		if err != nil {
			// 单个来源失败只告警，不中断整次搜索
			logger.Ctx(ctx).Warn().Err(err).Str("source", src.Name()).Msg("职位来源搜索失败")
			continue
		}
		all = append(all, listings...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("没有来源返回任何职位 (position=%q location=%q)", sq.Position, sq.Location)
	}

	if rc != nil && rc.Insights != nil {
		all = a.scoreListings(ctx, all, rc.Insights)
	}

	// 按匹配度降序，同分保持来源顺序
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].MatchScore > all[j].MatchScore
	})

	if len(all) > a.topN {
		all = all[:a.topN]
	}
	return all, nil
}

// rewriteQuery 用LLM把自然语言查询改写成 {position, location}
// 改写失败时回退为原始查询作为职位、地点留空
func (a *JobSearchAgent) rewriteQuery(ctx context.Context, query string) searchQuery {
	prompt := `Extract the job position and location from the user's query. Respond with a single JSON object and nothing else:
{"position": "job title or role keywords", "location": "location or empty string if not mentioned"}`

	messages := []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(query),
	}

	resp, err := a.llmModel.Generate(ctx, messages)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("查询改写失败，回退到原始查询")
		return searchQuery{Position: query}
	}

	var sq searchQuery
	if err := llm.UnmarshalResponse(resp.Content, &sq); err != nil || strings.TrimSpace(sq.Position) == "" {
		logger.Ctx(ctx).Warn().Err(err).Str("raw", resp.Content).Msg("查询改写结果不可用，回退到原始查询")
		return searchQuery{Position: query}
	}
	return sq
}

// scoreListings 针对简历对每条职位评分，评分失败或越界的条目被丢弃
func (a *JobSearchAgent) scoreListings(ctx context.Context, listings []types.JobListing, insights *types.ResumeInsights) []types.JobListing {
	resumeProfile := fmt.Sprintf("Key skills: %s\nExperience level: %s\nExperience summary: %s",
		strings.Join(insights.KeySkills, ", "), insights.ExperienceLevel, insights.ExperienceSummary)

	prompt := `You evaluate how well a job listing matches a candidate profile. Respond with a single JSON object and nothing else:
{"match_score": integer 0-100, "matching_skills": ["skill", ...], "missing_skills": ["skill", ...]}`

	scored := make([]types.JobListing, 0, len(listings))
	for _, listing := range listings {
		userMsg := fmt.Sprintf("Candidate profile:\n%s\n\nJob listing:\nPosition: %s\nCompany: %s\nDescription: %s",
			resumeProfile, listing.Position, listing.Company, listing.Description)

		resp, err := a.llmModel.Generate(ctx, []*schema.Message{
			schema.SystemMessage(prompt),
			schema.UserMessage(userMsg),
		})
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("position", listing.Position).Msg("职位评分调用失败，丢弃该条目")
			continue
		}

		var eval listingEvaluation
		if err := llm.UnmarshalResponse(resp.Content, &eval); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("position", listing.Position).Msg("职位评分结果解析失败，丢弃该条目")
			continue
		}
		if eval.MatchScore < 0 || eval.MatchScore > 100 {
			logger.Ctx(ctx).Warn().Int("match_score", eval.MatchScore).Str("position", listing.Position).Msg("职位评分越界，丢弃该条目")
			continue
		}

		listing.MatchScore = eval.MatchScore
		listing.MatchingSkills = eval.MatchingSkills
		listing.MissingSkills = eval.MissingSkills
		scored = append(scored, listing)
	}
	return scored
}

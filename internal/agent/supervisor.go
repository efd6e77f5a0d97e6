package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/types"
)

// ClarificationResponse 意图无法识别时返回给用户的固定文案
const ClarificationResponse = "Please clarify your query. I can help with job searches, cover letters, resume advice, and career research."

// genericErrorResponse 代理执行失败时的兜底文案
const genericErrorResponse = "Sorry, I ran into a problem handling that request. Please try again."

// intentRule 意图表中的一行：关键词按顺序匹配，先命中先赢
type intentRule struct {
	intent   types.Intent
	keywords []string
}

// intentTable 有序意图表，顺序即优先级
var intentTable = []intentRule{
	{types.IntentJobSearch, []string{"job", "position", "career", "opportunity", "roles"}},
	{types.IntentCoverLetter, []string{"cover letter", "application", "recommendation", "letter"}},
	{types.IntentResume, []string{"resume", "cv", "skill", "experience", "profile"}},
	{types.IntentResearch, []string{"research", "information", "learn", "find out", "details"}},
}

// researcherFactory 每次调研创建一个全新的 WebResearcher
type researcherFactory func() *WebResearcher

// Supervisor 聊天请求的路由器
// 无状态：每次 ProcessQuery 独立处理，不在请求之间保留任何可变状态
type Supervisor struct {
	jobSearch     *JobSearchAgent
	coverLetter   *CoverLetterAgent
	newResearcher researcherFactory
	memory        ChatMemory
}

// SupervisorOption Supervisor 的配置选项
type SupervisorOption func(*Supervisor)

// WithChatMemory 配置聊天历史存储，nil 表示不记录历史
func WithChatMemory(m ChatMemory) SupervisorOption {
	return func(s *Supervisor) {
		s.memory = m
	}
}

// WithResearcherFactory 覆盖 WebResearcher 的构造方式，主要用于测试
func WithResearcherFactory(f func() *WebResearcher) SupervisorOption {
	return func(s *Supervisor) {
		s.newResearcher = f
	}
}

// NewSupervisor 创建路由器
func NewSupervisor(jobSearch *JobSearchAgent, coverLetter *CoverLetterAgent, options ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		jobSearch:     jobSearch,
		coverLetter:   coverLetter,
		newResearcher: func() *WebResearcher { return NewWebResearcher() },
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// ClassifyIntent 按有序关键词表对查询分类，任何查询都会得到一个意图
func ClassifyIntent(query string) types.Intent {
	lower := strings.ToLower(query)
	for _, rule := range intentTable {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return types.IntentUnknown
}

// ProcessQuery 处理一次聊天请求并返回完整的处理结果
// sessionID 仅用于聊天历史记录；rc 可以为 nil 表示会话没有简历
func (s *Supervisor) ProcessQuery(ctx context.Context, sessionID, query string, rc *types.ResumeContext) *types.ChatTurn {
	turn := &types.ChatTurn{
		Query:  query,
		Intent: ClassifyIntent(query),
		At:     time.Now(),
	}

	switch turn.Intent {
	case types.IntentJobSearch:
		turn.Agent = s.jobSearch.Name()
		listings, err := s.jobSearch.Process(ctx, query, rc)
		if err != nil {
			s.fillError(ctx, turn, err)
		} else {
			turn.Response = FormatJobListings(listings)
		}

	case types.IntentCoverLetter:
		turn.Agent = s.coverLetter.Name()
		letter, err := s.coverLetter.Process(ctx, query, rc)
		if err != nil {
			s.fillError(ctx, turn, err)
		} else {
			turn.Response = RenderCoverLetter(letter)
		}

	case types.IntentResume:
		turn.Agent = "ResumeAdvisor"
		if rc == nil || rc.Insights == nil {
			s.fillError(ctx, turn, ErrNoResumeInsights)
		} else {
			turn.Response = FormatResumeInsights(rc.Insights)
		}

	case types.IntentResearch:
		researcher := s.newResearcher()
		turn.Agent = researcher.Name()
		findings, err := researcher.Research(ctx, query)
		if err != nil {
			s.fillError(ctx, turn, err)
		} else {
			turn.Response = FormatResearchFindings(findings)
		}

	default:
		// 未知意图：固定澄清文案，不触达任何代理
		turn.Agent = ""
		turn.Response = ClarificationResponse
	}

	s.recordTurn(ctx, sessionID, turn)
	return turn
}

// fillError 统一的错误信封：记录错误原文，响应放兜底文案
func (s *Supervisor) fillError(ctx context.Context, turn *types.ChatTurn, err error) {
	turn.Error = err.Error()
	if errors.Is(err, ErrNoResumeInsights) {
		// 缺少简历是可自助解决的问题，直接告知用户
		turn.Response = err.Error()
	} else {
		turn.Response = genericErrorResponse
	}
	logger.Ctx(ctx).Warn().
		Err(err).
		Str("intent", string(turn.Intent)).
		Str("agent", turn.Agent).
		Msg("代理处理失败")
}

// recordTurn 把本轮对话写入聊天历史，失败只告警
func (s *Supervisor) recordTurn(ctx context.Context, sessionID string, turn *types.ChatTurn) {
	if s.memory == nil || sessionID == "" {
		return
	}
	msgs := []*schema.Message{
		schema.UserMessage(turn.Query),
		schema.AssistantMessage(turn.Response, nil),
	}
	if err := s.memory.AddMessages(ctx, sessionID, msgs); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("写入聊天历史失败")
	}
}

// FormatJobListings 把职位列表渲染成用户可读文本
// 每条职位五行，条目之间用 --- 分隔
func FormatJobListings(listings []types.JobListing) string {
	if len(listings) == 0 {
		return "No matching jobs found. Try a different search."
	}
	blocks := make([]string, 0, len(listings))
	for _, l := range listings {
		var b strings.Builder
		fmt.Fprintf(&b, "Position: %s\n", l.Position)
		fmt.Fprintf(&b, "Company: %s\n", valueOrDash(l.Company))
		fmt.Fprintf(&b, "Location: %s\n", valueOrDash(l.Location))
		fmt.Fprintf(&b, "Match Score: %d\n", l.MatchScore)
		fmt.Fprintf(&b, "Requirements: %s", valueOrDash(truncateRunes(l.Description, 300)))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n---\n")
}

// FormatResumeInsights 把简历洞察渲染成 key: value 行
func FormatResumeInsights(insights *types.ResumeInsights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "key skills: %s\n", strings.Join(insights.KeySkills, ", "))
	fmt.Fprintf(&b, "experience summary: %s\n", insights.ExperienceSummary)
	fmt.Fprintf(&b, "education level: %s\n", insights.EducationLevel)
	fmt.Fprintf(&b, "career objectives: %s\n", insights.CareerObjectives)
	fmt.Fprintf(&b, "experience level: %s\n", insights.ExperienceLevel)
	fmt.Fprintf(&b, "skill gaps: %s\n", formatSkillGaps(insights.SkillGaps))
	fmt.Fprintf(&b, "improvement areas: %s", strings.Join(insights.ImprovementAreas, ", "))
	if len(insights.Organizations) > 0 {
		fmt.Fprintf(&b, "\norganizations: %s", strings.Join(insights.Organizations, ", "))
	}
	return b.String()
}

// FormatResearchFindings 把调研结果渲染成带来源链接的小节
func FormatResearchFindings(findings []types.ResearchFinding) string {
	blocks := make([]string, 0, len(findings))
	for _, f := range findings {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", f.Title)
		if f.Summary != "" {
			fmt.Fprintf(&b, "%s\n", f.Summary)
		}
		fmt.Fprintf(&b, "Source: %s", f.URL)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// formatSkillGaps 把按类别归组的技能缺口拍平成一行，类别按字母序保证输出稳定
func formatSkillGaps(gaps map[string][]string) string {
	if len(gaps) == 0 {
		return "-"
	}
	categories := make([]string, 0, len(gaps))
	for c := range gaps {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, fmt.Sprintf("%s: %s", c, strings.Join(gaps[c], ", ")))
	}
	return strings.Join(parts, "; ")
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

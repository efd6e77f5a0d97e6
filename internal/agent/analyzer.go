package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/parser"
	"github.com/qween-beth/careerstack/internal/types"
)

// ResumeAnalyzer 把简历PDF转成结构化的职业洞察
// 流程: PDF文本提取 -> LLM结构化解析 -> 结果校验 -> 组织名称识别
type ResumeAnalyzer struct {
	llmModel       model.ToolCallingChatModel
	extractor      *parser.EinoPDFTextExtractor
	promptTemplate string
}

// ResumeAnalyzerOption 分析器的配置选项
type ResumeAnalyzerOption func(*ResumeAnalyzer)

// WithAnalyzerPromptTemplate 设置自定义提示词模板
func WithAnalyzerPromptTemplate(template string) ResumeAnalyzerOption {
	return func(a *ResumeAnalyzer) {
		a.promptTemplate = template
	}
}

// NewResumeAnalyzer 创建一个新的简历分析器实例
// extractor 可以为 nil，此时只能使用 AnalyzeText
func NewResumeAnalyzer(llmModel model.ToolCallingChatModel, extractor *parser.EinoPDFTextExtractor, options ...ResumeAnalyzerOption) *ResumeAnalyzer {
	analyzer := &ResumeAnalyzer{
		llmModel:  llmModel,
		extractor: extractor,
	}
	analyzer.generatePromptTemplate()

	for _, opt := range options {
		opt(analyzer)
	}

	return analyzer
}

func (a *ResumeAnalyzer) generatePromptTemplate() {
	a.promptTemplate = `You are an expert career advisor. Analyze the resume text provided by the user and respond with a single JSON object, no extra text, using exactly this schema:
{
  "key_skills": ["skill", ...],
  "experience_summary": "2-3 sentence summary of the candidate's professional experience",
  "education_level": "highest education level, e.g. Bachelor's in Computer Science",
  "career_objectives": "inferred career objectives",
  "recommended_jobs": [
    {
      "title": "job title",
      "match_score": 0-100 integer,
      "required_skills": ["skill", ...],
      "missing_skills": ["skill", ...],
      "next_steps": ["concrete action", ...],
      "job_search_advice": "one sentence of advice for pursuing this role"
    }
  ],
  "skill_gaps": {"category": ["missing skill", ...], ...},
  "improvement_areas": ["area", ...],
  "experience_level": "entry|mid|senior|executive"
}

Rules:
- Output must be valid JSON. All strings double-quoted, inner double quotes escaped with a backslash.
- "recommended_jobs" must contain 3 to 5 entries sorted by match_score descending.
- "match_score" must be an integer between 0 and 100.
- "skill_gaps" must be an object whose keys are gap categories (e.g. "technical", "soft", "domain") and whose values are lists of missing skills.
- Do not wrap the JSON in Markdown code fences.`
}

// Analyze 从PDF文件开始的完整分析流程
func (a *ResumeAnalyzer) Analyze(ctx context.Context, pdfPath string) (*types.ResumeInsights, error) {
	if a.extractor == nil {
		return nil, fmt.Errorf("分析器未配置PDF提取器")
	}

	text, _, err := a.extractor.ExtractFromFile(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("简历 %s 未提取到任何文本", pdfPath)
	}

	return a.AnalyzeText(ctx, text)
}

// AnalyzeBytes 从内存中的PDF内容开始分析，uri仅用于日志标识
func (a *ResumeAnalyzer) AnalyzeBytes(ctx context.Context, data []byte, uri string) (*types.ResumeInsights, error) {
	if a.extractor == nil {
		return nil, fmt.Errorf("分析器未配置PDF提取器")
	}

	text, _, err := a.extractor.ExtractTextFromBytes(ctx, data, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("简历 %s 未提取到任何文本", uri)
	}

	return a.AnalyzeText(ctx, text)
}

// AnalyzeText 对已提取的简历文本做结构化分析
func (a *ResumeAnalyzer) AnalyzeText(ctx context.Context, resumeText string) (*types.ResumeInsights, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("简历文本为空")
	}

	messages := []*schema.Message{
		schema.SystemMessage(a.promptTemplate),
		schema.UserMessage(resumeText),
	}

	resp, err := a.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLM简历分析调用失败: %w", err)
	}

	var insights types.ResumeInsights
	if err := llm.UnmarshalResponse(resp.Content, &insights); err != nil {
		return nil, fmt.Errorf("解析简历分析结果失败: %w", err)
	}

	if err := validateInsights(&insights); err != nil {
		return nil, fmt.Errorf("简历分析结果不合法: %w", err)
	}

	// 推荐职位中分数越界的条目直接丢弃，不让单条坏数据毁掉整个结果
	valid := insights.RecommendedJobs[:0]
	for _, job := range insights.RecommendedJobs {
		if job.Title == "" || job.MatchScore < 0 || job.MatchScore > 100 {
			logger.Ctx(ctx).Warn().
				Str("title", job.Title).
				Int("match_score", job.MatchScore).
				Msg("丢弃不合法的推荐职位")
			continue
		}
		valid = append(valid, job)
	}
	insights.RecommendedJobs = valid

	// 第二趟: 启发式识别组织名称，LLM输出不参与
	insights.Organizations = parser.ExtractOrganizations(resumeText)
	insights.AnalyzedAt = time.Now()

	return &insights, nil
}

// validateInsights 验证分析结果的必填字段
func validateInsights(insights *types.ResumeInsights) error {
	if len(insights.KeySkills) == 0 {
		return fmt.Errorf("key_skills 不能为空")
	}
	if insights.ExperienceSummary == "" {
		return fmt.Errorf("experience_summary 不能为空")
	}
	return nil
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/types"
)

// ErrNoResumeInsights 表示当前会话还没有可用的简历分析结果
// 求职信和简历建议都依赖它，缺失时必须在任何LLM调用之前返回
var ErrNoResumeInsights = errors.New("当前会话没有已分析的简历，请先上传简历")

// CoverLetterAgent 基于简历洞察生成四段式求职信
type CoverLetterAgent struct {
	llmModel model.ToolCallingChatModel
}

// NewCoverLetterAgent 创建求职信代理
func NewCoverLetterAgent(llmModel model.ToolCallingChatModel) *CoverLetterAgent {
	return &CoverLetterAgent{llmModel: llmModel}
}

// Name 返回代理标识
func (a *CoverLetterAgent) Name() string { return "CoverLetterAgent" }

// Process 生成求职信
// rc 或 rc.Insights 为 nil 时直接返回 ErrNoResumeInsights，不发起LLM调用
func (a *CoverLetterAgent) Process(ctx context.Context, query string, rc *types.ResumeContext) (*types.CoverLetter, error) {
	if rc == nil || rc.Insights == nil {
		return nil, ErrNoResumeInsights
	}

	insights := rc.Insights
	profile := fmt.Sprintf(`Key skills: %s
Experience summary: %s
Education: %s
Career objectives: %s
Experience level: %s`,
		strings.Join(insights.KeySkills, ", "),
		insights.ExperienceSummary,
		insights.EducationLevel,
		insights.CareerObjectives,
		insights.ExperienceLevel,
	)

	prompt := `You write professional cover letters. Using the candidate profile and the user's request, produce a four-paragraph cover letter. Respond with a single JSON object and nothing else:
{
  "opening": "opening paragraph introducing the candidate and the role",
  "skills_alignment": "paragraph connecting the candidate's skills to the role",
  "motivation": "paragraph on why the candidate wants this role",
  "closing": "closing paragraph with a call to action"
}
Every paragraph must be plain text without Markdown.`

	userMsg := fmt.Sprintf("Candidate profile:\n%s\n\nRequest: %s", profile, query)

	resp, err := a.llmModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(userMsg),
	})
	if err != nil {
		return nil, fmt.Errorf("求职信生成调用失败: %w", err)
	}

	var letter types.CoverLetter
	if err := llm.UnmarshalResponse(resp.Content, &letter); err != nil {
		return nil, fmt.Errorf("解析求职信结果失败: %w", err)
	}

	if letter.Opening == "" || letter.Closing == "" {
		return nil, fmt.Errorf("求职信结果缺少必要段落")
	}

	return &letter, nil
}

// RenderCoverLetter 把四段求职信拼成最终文本，段落之间用空行分隔
func RenderCoverLetter(letter *types.CoverLetter) string {
	paragraphs := []string{letter.Opening, letter.SkillsAlignment, letter.Motivation, letter.Closing}
	nonEmpty := paragraphs[:0]
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

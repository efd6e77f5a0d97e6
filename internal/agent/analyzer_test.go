package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/llm"
)

const sampleResumeText = `Jane Doe
Senior Software Engineer at Acme Technologies Inc (2019-2024)
Built Go microservices on Kubernetes.
B.Sc. Computer Science, Stanford University.`

// TestAnalyzeTextParsesInsights 分析文本得到结构化洞察，并叠加组织识别
func TestAnalyzeTextParsesInsights(t *testing.T) {
	response := "```json\n" + `{
  "key_skills": ["Go", "Kubernetes"],
  "experience_summary": "Five years building Go microservices.",
  "education_level": "Bachelor's in Computer Science",
  "career_objectives": "Senior backend roles",
  "recommended_jobs": [
    {"title": "Staff Engineer", "match_score": 88, "required_skills": ["Go"], "missing_skills": [], "next_steps": ["apply"], "job_search_advice": "Highlight Kubernetes work."},
    {"title": "Broken Job", "match_score": 140, "required_skills": [], "missing_skills": [], "next_steps": [], "job_search_advice": ""}
  ],
  "skill_gaps": {"technical": ["Rust"], "soft": ["public speaking"]},
  "improvement_areas": ["writing"],
  "experience_level": "senior"
}` + "\n```"

	mock := llm.NewMockChatClient(response, nil)
	analyzer := NewResumeAnalyzer(mock, nil)

	insights, err := analyzer.AnalyzeText(context.Background(), sampleResumeText)
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Kubernetes"}, insights.KeySkills)
	assert.Equal(t, "senior", insights.ExperienceLevel)
	assert.Equal(t, map[string][]string{"technical": {"Rust"}, "soft": {"public speaking"}}, insights.SkillGaps, "技能缺口应按类别归组")
	assert.False(t, insights.AnalyzedAt.IsZero(), "应记录分析时间")

	// 分数越界的推荐职位被丢弃
	require.Len(t, insights.RecommendedJobs, 1, "越界的推荐职位应被丢弃")
	assert.Equal(t, "Staff Engineer", insights.RecommendedJobs[0].Title)

	// 组织识别独立于LLM输出
	assert.Contains(t, insights.Organizations, "Acme Technologies Inc")
	assert.Contains(t, insights.Organizations, "Stanford University")
}

// TestAnalyzeTextEmptyInput 空文本直接报错，不调用LLM
func TestAnalyzeTextEmptyInput(t *testing.T) {
	mock := llm.NewMockChatClient("unused", nil)
	analyzer := NewResumeAnalyzer(mock, nil)

	_, err := analyzer.AnalyzeText(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, 0, mock.CallCount)
}

// TestAnalyzeTextLLMFailure LLM错误应被包装后透出
func TestAnalyzeTextLLMFailure(t *testing.T) {
	mock := llm.NewMockChatClient("", errors.New("rate limited"))
	analyzer := NewResumeAnalyzer(mock, nil)

	_, err := analyzer.AnalyzeText(context.Background(), sampleResumeText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

// TestAnalyzeTextInvalidResult 缺少必填字段的结果被拒绝
func TestAnalyzeTextInvalidResult(t *testing.T) {
	mock := llm.NewMockChatClient(`{"key_skills": [], "experience_summary": ""}`, nil)
	analyzer := NewResumeAnalyzer(mock, nil)

	_, err := analyzer.AnalyzeText(context.Background(), sampleResumeText)
	assert.Error(t, err)
}

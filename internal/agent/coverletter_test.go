package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/types"
)

// TestCoverLetterWithoutResume 无简历洞察时必须在任何LLM调用之前返回错误
func TestCoverLetterWithoutResume(t *testing.T) {
	mock := llm.NewMockChatClient("should never be called", nil)
	agent := NewCoverLetterAgent(mock)

	_, err := agent.Process(context.Background(), "write me a cover letter", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoResumeInsights), "应返回缺少简历的哨兵错误")
	assert.Equal(t, 0, mock.CallCount, "无简历时不应发起LLM调用")

	// Insights 为 nil 的上下文同样拒绝
	_, err = agent.Process(context.Background(), "write me a cover letter", &types.ResumeContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoResumeInsights))
	assert.Equal(t, 0, mock.CallCount)
}

// TestCoverLetterGeneration 正常生成四段式求职信
func TestCoverLetterGeneration(t *testing.T) {
	response := `{
  "opening": "Dear Hiring Manager, I am excited to apply for the Backend Engineer role.",
  "skills_alignment": "My five years with Go and Kubernetes map directly to your stack.",
  "motivation": "I admire your team's work on developer tooling.",
  "closing": "I would welcome the chance to discuss my fit. Thank you for your time."
}`
	mock := llm.NewMockChatClient(response, nil)
	agent := NewCoverLetterAgent(mock)

	rc := &types.ResumeContext{Insights: testInsights()}
	letter, err := agent.Process(context.Background(), "cover letter for a backend engineer role", rc)
	require.NoError(t, err)

	rendered := RenderCoverLetter(letter)
	assert.Contains(t, rendered, "Dear Hiring Manager")
	assert.Contains(t, rendered, "Thank you for your time")
	// 四段之间用空行分隔
	assert.Equal(t, 3, countOccurrences(rendered, "\n\n"), "四段应由三个空行分隔")
}

// TestCoverLetterFencedResponse 带Markdown围栏的回复也能解析
func TestCoverLetterFencedResponse(t *testing.T) {
	response := "```json\n{\"opening\": \"Dear Team,\", \"skills_alignment\": \"a\", \"motivation\": \"b\", \"closing\": \"Sincerely.\"}\n```"
	mock := llm.NewMockChatClient(response, nil)
	agent := NewCoverLetterAgent(mock)

	rc := &types.ResumeContext{Insights: testInsights()}
	letter, err := agent.Process(context.Background(), "cover letter please", rc)
	require.NoError(t, err)
	assert.Equal(t, "Dear Team,", letter.Opening)
}

// TestCoverLetterMissingParagraphs 缺少必要段落时报错
func TestCoverLetterMissingParagraphs(t *testing.T) {
	mock := llm.NewMockChatClient(`{"opening": "", "closing": ""}`, nil)
	agent := NewCoverLetterAgent(mock)

	rc := &types.ResumeContext{Insights: testInsights()}
	_, err := agent.Process(context.Background(), "cover letter please", rc)
	assert.Error(t, err)
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
			i += len(sub) - 1
		}
	}
	return count
}

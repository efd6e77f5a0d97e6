package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/agent"
	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/session"
	"github.com/qween-beth/careerstack/internal/storage"
	"github.com/qween-beth/careerstack/internal/types"
)

func newTestChatHandler(t *testing.T) (*ChatHandler, *llm.MockChatClient) {
	t.Helper()

	mock := llm.NewMockChatClient("{}", nil)
	supervisor := agent.NewSupervisor(
		agent.NewJobSearchAgent(mock, nil),
		agent.NewCoverLetterAgent(mock),
	)
	return NewChatHandler(supervisor, &storage.Storage{}, session.NewInMemoryStore()), mock
}

// attachResumeFile 给会话挂上一个真实存在的简历文件
func attachResumeFile(t *testing.T, sess *session.Session) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	sess.ResumePath = path
}

// TestChatMessageRejectsEmptyQuery 空消息不进入意图路由
func TestChatMessageRejectsEmptyQuery(t *testing.T) {
	h, _ := newTestChatHandler(t)
	sess := &session.Session{ID: "sess-1"}

	_, err := h.HandleChatMessage(context.Background(), sess, "   ")
	assert.True(t, errors.Is(err, ErrEmptyQuery))
}

// TestChatMessageWithoutResumeNeverCallsAgents 无简历会话在触达任何代理前被拦截
func TestChatMessageWithoutResumeNeverCallsAgents(t *testing.T) {
	h, mock := newTestChatHandler(t)

	queries := []string{
		"find me a software engineer job",
		"research the company OpenAI",
		"write a cover letter for this position",
		"how can I improve my resume",
	}
	for _, q := range queries {
		sess := &session.Session{ID: "sess-1"}
		_, err := h.HandleChatMessage(context.Background(), sess, q)
		assert.True(t, errors.Is(err, ErrNoResume), "查询 %q 应返回无简历错误", q)
	}
	assert.Equal(t, 0, mock.CallCount, "无简历时不应产生任何LLM调用")
}

// TestChatMessageResumeFileMissingOnDisk 简历文件已从磁盘消失时同样拦截
func TestChatMessageResumeFileMissingOnDisk(t *testing.T) {
	h, mock := newTestChatHandler(t)
	sess := &session.Session{
		ID:         "sess-1",
		ResumePath: filepath.Join(t.TempDir(), "gone.pdf"),
	}

	_, err := h.HandleChatMessage(context.Background(), sess, "find me a software engineer job")
	assert.True(t, errors.Is(err, ErrNoResume))
	assert.Equal(t, 0, mock.CallCount)
}

// TestChatMessageUnknownIntent 未识别意图返回固定澄清话术
func TestChatMessageUnknownIntent(t *testing.T) {
	h, _ := newTestChatHandler(t)
	sess := &session.Session{ID: "sess-1"}
	attachResumeFile(t, sess)

	turn, err := h.HandleChatMessage(context.Background(), sess, "what is the weather today")
	require.NoError(t, err)
	assert.Equal(t, types.IntentUnknown, turn.Intent)
	assert.Equal(t, agent.ClarificationResponse, turn.Response)
	assert.Empty(t, turn.Error)
}

// TestChatMessageResumeIntentUsesSessionInsights 简历意图直接使用会话中的洞察
func TestChatMessageResumeIntentUsesSessionInsights(t *testing.T) {
	h, _ := newTestChatHandler(t)
	sess := &session.Session{
		ID:             "sess-1",
		SubmissionUUID: "sub-1",
		Insights: &types.ResumeInsights{
			KeySkills:         []string{"Go", "Kubernetes"},
			ExperienceSummary: "Backend engineer with five years of experience.",
			ExperienceLevel:   "mid",
		},
	}
	attachResumeFile(t, sess)

	turn, err := h.HandleChatMessage(context.Background(), sess, "how can I improve my resume")
	require.NoError(t, err)
	assert.Equal(t, types.IntentResume, turn.Intent)
	assert.Contains(t, turn.Response, "Go, Kubernetes", "回复应包含会话中的技能列表")
	assert.Empty(t, turn.Error)
}

// TestChatMessageResumeIntentWithoutInsights 简历已上传但分析未完成时返回错误信封
func TestChatMessageResumeIntentWithoutInsights(t *testing.T) {
	h, _ := newTestChatHandler(t)
	sess := &session.Session{ID: "sess-1", SubmissionUUID: "sub-1"}
	attachResumeFile(t, sess)

	turn, err := h.HandleChatMessage(context.Background(), sess, "how can I improve my resume")
	require.NoError(t, err, "业务错误进入信封而不是error返回值")
	assert.Equal(t, types.IntentResume, turn.Intent)
	assert.NotEmpty(t, turn.Error)
	assert.NotEmpty(t, turn.Response, "即使失败也要给用户可读的回复")
}

package handler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/agent"
	"github.com/qween-beth/careerstack/internal/config"
	"github.com/qween-beth/careerstack/internal/constants"
	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/session"
	"github.com/qween-beth/careerstack/internal/storage"
)

func newTestResumeHandler(t *testing.T) (*ResumeHandler, session.Store) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Uploads.Dir = t.TempDir()
	cfg.Uploads.MaxFileSizeMB = 16
	cfg.Session.AnalysisTimeout = "30s"

	mock := llm.NewMockChatClient(`{"key_skills":["Go"],"experience_summary":"ok"}`, nil)
	analyzer := agent.NewResumeAnalyzer(mock, nil)

	sessions := session.NewInMemoryStore()
	// 所有外部存储均未初始化，走纯本地降级路径
	h := NewResumeHandler(cfg, &storage.Storage{}, analyzer, sessions)
	return h, sessions
}

// TestUploadRejectsNonPDF 非PDF扩展名直接拒绝
func TestUploadRejectsNonPDF(t *testing.T) {
	h, _ := newTestResumeHandler(t)
	sess := &session.Session{ID: "sess-1"}

	_, err := h.HandleResumeUpload(context.Background(), sess, bytes.NewReader([]byte("doc")), 3, "resume.docx")
	assert.True(t, errors.Is(err, ErrInvalidFileType), "应返回文件类型错误")
}

// TestUploadRejectsOversized 超过大小上限直接拒绝
func TestUploadRejectsOversized(t *testing.T) {
	h, _ := newTestResumeHandler(t)
	sess := &session.Session{ID: "sess-1"}

	_, err := h.HandleResumeUpload(context.Background(), sess, bytes.NewReader([]byte("x")), 17*1024*1024, "resume.pdf")
	assert.True(t, errors.Is(err, ErrFileTooLarge), "应返回文件过大错误")
}

// TestUploadRejectsEmptyFile 空文件直接拒绝
func TestUploadRejectsEmptyFile(t *testing.T) {
	h, _ := newTestResumeHandler(t)
	sess := &session.Session{ID: "sess-1"}

	_, err := h.HandleResumeUpload(context.Background(), sess, bytes.NewReader(nil), 0, "resume.pdf")
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

// TestUploadSavesLocallyAndUpdatesSession 上传成功后本地落盘并更新会话
func TestUploadSavesLocallyAndUpdatesSession(t *testing.T) {
	h, sessions := newTestResumeHandler(t)
	sess := &session.Session{ID: "sess-1", CreatedAt: time.Now()}
	require.NoError(t, sessions.Save(context.Background(), sess))

	content := []byte("%PDF-1.4 fake resume content")
	resp, err := h.HandleResumeUpload(context.Background(), sess, bytes.NewReader(content), int64(len(content)), "resume.pdf")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SubmissionUUID, "应生成提交UUID")
	assert.Equal(t, constants.SubmissionStatusAccepted, resp.Status)

	// 文件落到上传目录
	localPath := filepath.Join(h.cfg.Uploads.Dir, resp.SubmissionUUID+".pdf")
	saved, err := os.ReadFile(localPath)
	require.NoError(t, err, "简历应写入本地上传目录")
	assert.Equal(t, content, saved)

	// 会话指向新的提交
	assert.Equal(t, resp.SubmissionUUID, sess.SubmissionUUID)
	assert.Equal(t, localPath, sess.ResumePath)
}

// TestCheckAnalysisStatus 轮询接口按会话状态分支
func TestCheckAnalysisStatus(t *testing.T) {
	h, _ := newTestResumeHandler(t)
	ctx := context.Background()

	// 没有上传过简历
	resp := h.CheckAnalysisStatus(ctx, &session.Session{ID: "s"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	// 分析完成
	resp = h.CheckAnalysisStatus(ctx, &session.Session{
		ID:             "s",
		SubmissionUUID: "u1",
		AnalysisStatus: constants.StatusAnalysisCompleted,
	})
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "completed")

	// 分析失败带原因
	resp = h.CheckAnalysisStatus(ctx, &session.Session{
		ID:             "s",
		SubmissionUUID: "u1",
		AnalysisStatus: constants.StatusAnalysisFailed,
		AnalysisError:  "提取文本失败",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "提取文本失败", resp.Error)

	// 进行中但未超时
	resp = h.CheckAnalysisStatus(ctx, &session.Session{
		ID:                "s",
		SubmissionUUID:    "u1",
		AnalysisStatus:    constants.StatusAnalyzing,
		AnalysisStartedAt: time.Now(),
	})
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Error)

	// 超过30秒仍未完成视为超时
	resp = h.CheckAnalysisStatus(ctx, &session.Session{
		ID:                "s",
		SubmissionUUID:    "u1",
		AnalysisStatus:    constants.StatusAnalyzing,
		AnalysisStartedAt: time.Now().Add(-time.Minute),
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "longer than expected")
}

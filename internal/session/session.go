package session

import (
	"context"
	"errors"
	"time"

	"github.com/qween-beth/careerstack/internal/types"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("会话不存在或已过期")

// Session 一个浏览器会话的服务端状态
// 简历分析是异步的，前端通过 AnalysisStatus 轮询进度
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// 最近一次上传的简历
	SubmissionUUID string `json:"submission_uuid,omitempty"`
	ResumePath     string `json:"resume_path,omitempty"` // 本地落盘路径
	ObjectKey      string `json:"object_key,omitempty"`  // MinIO中的对象键

	// 分析流水线状态，取值见 constants 包的 Status* 常量
	AnalysisStatus    string    `json:"analysis_status,omitempty"`
	AnalysisStartedAt time.Time `json:"analysis_started_at,omitempty"`
	AnalysisError     string    `json:"analysis_error,omitempty"`

	// 分析完成后的结构化洞察
	Insights *types.ResumeInsights `json:"insights,omitempty"`
}

// ResumeContext 把会话状态转成代理可用的简历上下文
// 会话没有简历时返回 nil
func (s *Session) ResumeContext() *types.ResumeContext {
	if s == nil || s.SubmissionUUID == "" {
		return nil
	}
	return &types.ResumeContext{
		SubmissionUUID: s.SubmissionUUID,
		Insights:       s.Insights,
	}
}

// Store 会话状态的持久化接口
type Store interface {
	// Get 读取会话，不存在时返回 ErrSessionNotFound
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Save 写入或覆盖会话
	Save(ctx context.Context, sess *Session) error

	// Delete 删除会话，不存在时静默成功
	Delete(ctx context.Context, sessionID string) error
}

package handler

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/qween-beth/careerstack/internal/agent"
	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/session"
	"github.com/qween-beth/careerstack/internal/storage"
	"github.com/qween-beth/careerstack/internal/storage/models"
	"github.com/qween-beth/careerstack/internal/types"
	"github.com/qween-beth/careerstack/pkg/utils"
)

// 聊天阶段的输入校验错误，路由层据此返回400而非500
var (
	// ErrEmptyQuery 空消息不进入路由
	ErrEmptyQuery = errors.New("消息内容不能为空")
	// ErrNoResume 会话没有简历或本地文件已丢失，任何代理都不应被触达
	ErrNoResume = errors.New("当前会话没有可用的简历，请先上传简历")
)

// ChatHandler 聊天处理器，把会话上下文接到Supervisor上并负责消息留痕
type ChatHandler struct {
	supervisor *agent.Supervisor
	storage    *storage.Storage
	sessions   session.Store
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(supervisor *agent.Supervisor, storage *storage.Storage, sessions session.Store) *ChatHandler {
	return &ChatHandler{
		supervisor: supervisor,
		storage:    storage,
		sessions:   sessions,
	}
}

// ChatMessageResponse 聊天接口响应
type ChatMessageResponse struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
	Agent    string `json:"agent"`
	Error    string `json:"error,omitempty"`
}

// HandleChatMessage 处理一条用户消息并返回完整的回合结果
func (h *ChatHandler) HandleChatMessage(ctx context.Context, sess *session.Session, query string) (*types.ChatTurn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	// 聊天依赖已上传且仍在磁盘上的简历，缺失时在触达任何代理之前拦截
	if sess.ResumePath == "" {
		return nil, ErrNoResume
	}
	if _, err := os.Stat(sess.ResumePath); err != nil {
		return nil, ErrNoResume
	}

	turn := h.supervisor.ProcessQuery(ctx, sess.ID, query, sess.ResumeContext())

	h.persistTurn(ctx, sess, turn)

	return turn, nil
}

// persistTurn 把一个回合的两条消息写入MySQL留痕，失败只告警
func (h *ChatHandler) persistTurn(ctx context.Context, sess *session.Session, turn *types.ChatTurn) {
	if h.storage == nil || h.storage.MySQL == nil {
		return
	}

	var submissionUUID *string
	if sess.SubmissionUUID != "" {
		submissionUUID = utils.StringPtr(sess.SubmissionUUID)
	}

	userMsg := &models.ChatMessage{
		SessionID:      sess.ID,
		SubmissionUUID: submissionUUID,
		Role:           "user",
		Intent:         string(turn.Intent),
		Content:        turn.Query,
	}
	if err := h.storage.MySQL.InsertChatMessage(ctx, userMsg); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sess.ID).Msg("保存用户消息失败")
	}

	assistantMsg := &models.ChatMessage{
		SessionID:      sess.ID,
		SubmissionUUID: submissionUUID,
		Role:           "assistant",
		Intent:         string(turn.Intent),
		Agent:          turn.Agent,
		Content:        turn.Response,
		ErrorDetail:    turn.Error,
	}
	if err := h.storage.MySQL.InsertChatMessage(ctx, assistantMsg); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sess.ID).Msg("保存助手消息失败")
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/qween-beth/careerstack/internal/agent"
	"github.com/qween-beth/careerstack/internal/config"
	"github.com/qween-beth/careerstack/internal/constants"
	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/session"
	"github.com/qween-beth/careerstack/internal/storage"
	"github.com/qween-beth/careerstack/internal/storage/models"
	"github.com/qween-beth/careerstack/internal/types"
	"github.com/qween-beth/careerstack/pkg/utils"
)

// 上传阶段的输入校验错误，路由层据此返回400而非500
var (
	ErrInvalidFileType = errors.New("只支持PDF格式的简历文件")
	ErrFileTooLarge    = errors.New("简历文件超过大小限制")
	ErrEmptyFile       = errors.New("简历文件内容为空")
)

// ResumeHandler 简历处理器，负责上传流程与异步分析流程的协调
type ResumeHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	analyzer *agent.ResumeAnalyzer
	sessions session.Store
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(
	cfg *config.Config,
	storage *storage.Storage,
	analyzer *agent.ResumeAnalyzer,
	sessions session.Store,
) *ResumeHandler {
	return &ResumeHandler{
		cfg:      cfg,
		storage:  storage,
		analyzer: analyzer,
		sessions: sessions,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// HandleResumeUpload 处理简历上传请求
// 流程: 校验 -> MD5去重 -> 本地落盘 -> MinIO归档 -> DB留痕 -> 发布分析消息 -> 更新会话
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, sess *session.Session, reader io.Reader,
	fileSize int64, filename string) (*ResumeUploadResponse, error) {

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != constants.AllowedResumeExt {
		return nil, ErrInvalidFileType
	}
	if fileSize > h.cfg.MaxUploadBytes() {
		return nil, fmt.Errorf("%w: 最大允许 %dMB", ErrFileTooLarge, h.cfg.Uploads.MaxFileSizeMB)
	}

	// reader只能读一次，先全部读入以便计算MD5和多路写出
	fileBytes, err := io.ReadAll(io.LimitReader(reader, h.cfg.MaxUploadBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(fileBytes)) > h.cfg.MaxUploadBytes() {
		return nil, fmt.Errorf("%w: 最大允许 %dMB", ErrFileTooLarge, h.cfg.Uploads.MaxFileSizeMB)
	}

	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// 文件MD5原子去重，重复上传直接跳过后续处理
	if h.storage.Redis != nil {
		exists, err := h.storage.Redis.CheckAndAddResumeMD5(ctx, fileMD5Hex)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("md5", fileMD5Hex).Msg("查询Redis文件MD5去重集合失败")
			return nil, fmt.Errorf("检查文件重复性失败: %w", err)
		}
		if exists {
			logger.Ctx(ctx).Info().
				Str("md5", fileMD5Hex).
				Str("filename", filename).
				Msg("检测到重复的简历文件，跳过处理")
			return &ResumeUploadResponse{
				SubmissionUUID: "",
				Status:         constants.SubmissionStatusDuplicate,
			}, nil
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	// 本地落盘，MinIO不可用时这是分析消费者唯一的文件来源
	if err := os.MkdirAll(h.cfg.Uploads.Dir, 0o755); err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	localPath := filepath.Join(h.cfg.Uploads.Dir, submissionUUID+ext)
	if err := os.WriteFile(localPath, fileBytes, 0o644); err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("保存简历到本地失败: %w", err)
	}

	// MinIO归档失败不阻断流程，本地副本仍可用
	var objectKey string
	if h.storage.MinIO != nil {
		objectKey, _, err = h.storage.MinIO.UploadResumeFileStreaming(ctx, submissionUUID, ext,
			bytes.NewReader(fileBytes), int64(len(fileBytes)))
		if err != nil {
			logger.Ctx(ctx).Warn().
				Err(err).
				Str("submission_uuid", submissionUUID).
				Msg("上传简历到MinIO失败，仅保留本地副本")
			objectKey = ""
		}
	}

	now := time.Now()

	if h.storage.MySQL != nil {
		submission := &models.ResumeSubmission{
			SubmissionUUID:      submissionUUID,
			SessionID:           sess.ID,
			SubmissionTimestamp: now,
			OriginalFilename:    filename,
			LocalFilePath:       localPath,
			ObjectKeyOSS:        objectKey,
			RawFileMD5:          fileMD5Hex,
			FileSizeBytes:       int64(len(fileBytes)),
			ProcessingStatus:    constants.StatusPendingAnalysis,
		}
		if err := h.storage.MySQL.CreateResumeSubmission(ctx, submission); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("写入简历提交记录失败")
		}
	}

	if h.storage.Redis != nil {
		if err := h.storage.Redis.SetAnalysisStatus(ctx, submissionUUID, constants.StatusPendingAnalysis); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("写入分析状态失败")
		}
	}

	message := storage.ResumeAnalysisMessage{
		SubmissionUUID:      submissionUUID,
		SessionID:           sess.ID,
		SubmissionTimestamp: now,
		OriginalFilename:    filename,
		LocalFilePath:       localPath,
		ObjectKey:           objectKey,
		RawFileMD5:          fileMD5Hex,
		FileSizeBytes:       int64(len(fileBytes)),
	}

	if h.storage.RabbitMQ != nil {
		err = h.storage.RabbitMQ.PublishJSON(
			ctx,
			h.cfg.RabbitMQ.ResumeEventsExchange,
			h.cfg.RabbitMQ.UploadedRoutingKey,
			message,
			true, // 持久化
		)
		if err != nil {
			h.rollbackMD5(ctx, fileMD5Hex)
			return nil, fmt.Errorf("发布简历分析消息失败: %w", err)
		}
	} else {
		// 没有消息队列时退化为进程内异步分析
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			h.analyzeSubmission(bgCtx, message)
		}()
	}

	// 更新会话，轮询接口依赖这些字段
	sess.SubmissionUUID = submissionUUID
	sess.ResumePath = localPath
	sess.ObjectKey = objectKey
	sess.AnalysisStatus = constants.StatusPendingAnalysis
	sess.AnalysisStartedAt = now
	sess.AnalysisError = ""
	sess.Insights = nil
	if err := h.sessions.Save(ctx, sess); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sess.ID).Msg("保存会话失败")
	}

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         constants.SubmissionStatusAccepted,
	}, nil
}

// rollbackMD5 上传失败时移除去重记录，允许用户重试同一文件
func (h *ResumeHandler) rollbackMD5(ctx context.Context, md5Hex string) {
	if h.storage.Redis == nil {
		return
	}
	if err := h.storage.Redis.RemoveResumeMD5(ctx, md5Hex); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("md5", md5Hex).Msg("回滚文件MD5去重记录失败")
	}
}

// StartAnalysisConsumer 启动简历分析消费者
func (h *ResumeHandler) StartAnalysisConsumer(ctx context.Context) error {
	if h.storage.RabbitMQ == nil {
		return fmt.Errorf("RabbitMQ未初始化, 无法启动分析消费者")
	}

	if err := h.storage.RabbitMQ.SetupResumeTopology(); err != nil {
		return fmt.Errorf("初始化简历事件拓扑失败: %w", err)
	}

	prefetch := h.cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	_, err := h.storage.RabbitMQ.StartConsumer(h.cfg.RabbitMQ.AnalysisQueue, prefetch, func(data []byte) bool {
		var message storage.ResumeAnalysisMessage
		if err := json.Unmarshal(data, &message); err != nil {
			// 消息格式错误重试也不会成功，确认后丢弃
			logger.Error().Err(err).Msg("解析简历分析消息失败, 丢弃消息")
			return true
		}

		h.analyzeSubmission(ctx, message)
		// 分析失败已在analyzeSubmission中标记状态，重新入队只会重复失败
		return true
	})
	if err != nil {
		return fmt.Errorf("启动分析消费者失败: %w", err)
	}

	logger.Info().Str("queue", h.cfg.RabbitMQ.AnalysisQueue).Msg("简历分析消费者就绪")
	return nil
}

// analyzeSubmission 执行一次完整的简历分析并落地结果
func (h *ResumeHandler) analyzeSubmission(ctx context.Context, message storage.ResumeAnalysisMessage) {
	log := logger.Ctx(ctx).With().Str("submission_uuid", message.SubmissionUUID).Logger()

	h.setStatus(ctx, message, constants.StatusAnalyzing, "")

	insights, err := h.runAnalysis(ctx, message)
	if err != nil {
		log.Error().Err(err).Msg("简历分析失败")
		h.setStatus(ctx, message, constants.StatusAnalysisFailed, err.Error())
		if h.storage.MySQL != nil {
			if dbErr := h.storage.MySQL.MarkAnalysisFailed(ctx, message.SubmissionUUID, err.Error()); dbErr != nil {
				log.Warn().Err(dbErr).Msg("标记分析失败状态到数据库失败")
			}
		}
		return
	}

	if h.storage.MySQL != nil {
		if err := h.storage.MySQL.SaveResumeInsights(ctx, message.SubmissionUUID, insights); err != nil {
			log.Warn().Err(err).Msg("保存简历洞察到数据库失败")
		}
	}

	if h.storage.Redis != nil {
		if data, err := json.Marshal(insights); err == nil {
			if err := h.storage.Redis.CacheInsights(ctx, message.SubmissionUUID, string(data)); err != nil {
				log.Warn().Err(err).Msg("缓存简历洞察失败")
			}
		}
	}

	// 会话状态是轮询接口和聊天接口的事实来源
	if sess, err := h.sessions.Get(ctx, message.SessionID); err == nil {
		sess.AnalysisStatus = constants.StatusAnalysisCompleted
		sess.AnalysisError = ""
		sess.Insights = insights
		if err := h.sessions.Save(ctx, sess); err != nil {
			log.Warn().Err(err).Msg("回写会话分析结果失败")
		}
	} else {
		log.Warn().Err(err).Str("session_id", message.SessionID).Msg("分析完成但会话已不存在")
	}

	h.setRedisStatus(ctx, message.SubmissionUUID, constants.StatusAnalysisCompleted)
	log.Info().Int("key_skills", len(insights.KeySkills)).Msg("简历分析完成")
}

// runAnalysis 优先用本地文件，缺失时回退到MinIO副本
func (h *ResumeHandler) runAnalysis(ctx context.Context, message storage.ResumeAnalysisMessage) (*types.ResumeInsights, error) {
	if message.LocalFilePath != "" {
		if _, err := os.Stat(message.LocalFilePath); err == nil {
			return h.analyzer.Analyze(ctx, message.LocalFilePath)
		}
	}

	if message.ObjectKey != "" && h.storage.MinIO != nil {
		data, err := h.storage.MinIO.GetResumeFile(ctx, message.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("本地文件缺失且从MinIO获取简历失败: %w", err)
		}
		return h.analyzer.AnalyzeBytes(ctx, data, message.ObjectKey)
	}

	return nil, fmt.Errorf("简历文件 %s 不存在且没有可用的MinIO副本", message.LocalFilePath)
}

// setStatus 同步更新Redis状态、数据库状态和会话状态
func (h *ResumeHandler) setStatus(ctx context.Context, message storage.ResumeAnalysisMessage, status, errDetail string) {
	h.setRedisStatus(ctx, message.SubmissionUUID, status)

	if h.storage.MySQL != nil && status == constants.StatusAnalyzing {
		if err := h.storage.MySQL.UpdateResumeProcessingStatus(ctx, message.SubmissionUUID, status); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", message.SubmissionUUID).Msg("更新数据库处理状态失败")
		}
	}

	if sess, err := h.sessions.Get(ctx, message.SessionID); err == nil {
		sess.AnalysisStatus = status
		sess.AnalysisError = errDetail
		if err := h.sessions.Save(ctx, sess); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("session_id", message.SessionID).Msg("回写会话状态失败")
		}
	}
}

func (h *ResumeHandler) setRedisStatus(ctx context.Context, submissionUUID, status string) {
	if h.storage.Redis == nil {
		return
	}
	if err := h.storage.Redis.SetAnalysisStatus(ctx, submissionUUID, status); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("更新Redis分析状态失败")
	}
}

// AnalysisStatusResponse 分析状态轮询响应
type AnalysisStatusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CheckAnalysisStatus 根据会话状态返回轮询结果
// 超过配置的分析超时仍未完成时返回超时错误
func (h *ResumeHandler) CheckAnalysisStatus(ctx context.Context, sess *session.Session) *AnalysisStatusResponse {
	if sess == nil || sess.SubmissionUUID == "" {
		return &AnalysisStatusResponse{
			Success: false,
			Error:   "当前会话没有待分析的简历，请先上传简历",
		}
	}

	switch sess.AnalysisStatus {
	case constants.StatusAnalysisCompleted:
		return &AnalysisStatusResponse{
			Success: true,
			Status:  sess.AnalysisStatus,
			Message: "Resume analysis completed successfully!",
		}
	case constants.StatusAnalysisFailed:
		msg := sess.AnalysisError
		if msg == "" {
			msg = "简历分析失败，请重新上传"
		}
		return &AnalysisStatusResponse{
			Success: false,
			Status:  sess.AnalysisStatus,
			Error:   msg,
		}
	default:
		timeout := config.GetDuration(h.cfg.Session.AnalysisTimeout, constants.DefaultAnalysisTimeout)
		if !sess.AnalysisStartedAt.IsZero() && time.Since(sess.AnalysisStartedAt) > timeout {
			return &AnalysisStatusResponse{
				Success: false,
				Status:  sess.AnalysisStatus,
				Error:   "Analysis is taking longer than expected. Please try uploading again.",
			}
		}
		return &AnalysisStatusResponse{
			Success: false,
			Status:  sess.AnalysisStatus,
			Message: "Analysis in progress",
		}
	}
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/qween-beth/careerstack/internal/api/handler"
	"github.com/qween-beth/careerstack/internal/logger"
)

// chatMessageRequest 聊天接口请求体
type chatMessageRequest struct {
	Message string `json:"message"`
}

// RegisterRoutes 注册全部路由
func RegisterRoutes(
	h *server.Hertz,
	sessions *handler.SessionManager,
	resumeHandler *handler.ResumeHandler,
	chatHandler *handler.ChatHandler,
) {
	// 上传页
	h.GET("/", func(c context.Context, ctx *app.RequestContext) {
		if _, err := sessions.Ensure(c, ctx); err != nil {
			logger.Ctx(c).Error().Err(err).Msg("创建会话失败")
		}
		ctx.HTML(consts.StatusOK, "index.html", utils.H{})
	})

	// 聊天页，没有已上传的简历时退回上传页
	h.GET("/chat", func(c context.Context, ctx *app.RequestContext) {
		sess, err := sessions.Current(c, ctx)
		if err != nil || sess.ResumePath == "" {
			ctx.Redirect(consts.StatusFound, []byte("/"))
			return
		}
		if _, err := os.Stat(sess.ResumePath); err != nil {
			ctx.Redirect(consts.StatusFound, []byte("/"))
			return
		}
		ctx.HTML(consts.StatusOK, "chat.html", utils.H{})
	})

	// 简历上传
	h.POST("/upload_resume", func(c context.Context, ctx *app.RequestContext) {
		sess, err := sessions.Ensure(c, ctx)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"success": false, "error": "会话初始化失败"})
			return
		}

		fileHeader, err := ctx.FormFile("resume")
		if err != nil {
			// 兼容以file为字段名的客户端
			fileHeader, err = ctx.FormFile("file")
		}
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"success": false, "error": "未找到上传的简历文件"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"success": false, "error": "打开上传文件失败"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.HandleResumeUpload(c, sess, file, fileHeader.Size, fileHeader.Filename)
		if err != nil {
			status := consts.StatusInternalServerError
			if errors.Is(err, handler.ErrInvalidFileType) ||
				errors.Is(err, handler.ErrFileTooLarge) ||
				errors.Is(err, handler.ErrEmptyFile) {
				status = consts.StatusBadRequest
			}
			ctx.JSON(status, utils.H{"success": false, "error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, utils.H{
			"success":         true,
			"submission_uuid": resp.SubmissionUUID,
			"status":          resp.Status,
		})
	})

	// 分析状态轮询
	h.GET("/check_analysis_status", func(c context.Context, ctx *app.RequestContext) {
		sess, err := sessions.Current(c, ctx)
		if err != nil {
			ctx.JSON(consts.StatusOK, utils.H{"success": false, "error": "会话不存在，请先上传简历"})
			return
		}
		ctx.JSON(consts.StatusOK, resumeHandler.CheckAnalysisStatus(c, sess))
	})

	// 聊天消息
	h.POST("/chat/message", func(c context.Context, ctx *app.RequestContext) {
		sess, err := sessions.Current(c, ctx)
		if err != nil {
			ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "会话不存在，请先上传简历"})
			return
		}

		var req chatMessageRequest
		body, _ := ctx.Body()
		if err := json.Unmarshal(body, &req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体必须是JSON格式"})
			return
		}

		turn, err := chatHandler.HandleChatMessage(c, sess, req.Message)
		if err != nil {
			if errors.Is(err, handler.ErrEmptyQuery) || errors.Is(err, handler.ErrNoResume) {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
				return
			}
			logger.Ctx(c).Error().Err(err).Str("session_id", sess.ID).Msg("处理聊天消息失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{
				"error": "Sorry, something went wrong. Please try again.",
			})
			return
		}

		ctx.JSON(consts.StatusOK, handler.ChatMessageResponse{
			Response: turn.Response,
			Intent:   string(turn.Intent),
			Agent:    turn.Agent,
			Error:    turn.Error,
		})
	})

	// 健康检查
	api := h.Group("/api/v1")
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/google/uuid"

	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/session"
)

// SessionManager 负责HTTP层的会话识别：从签名cookie中恢复会话，必要时创建新会话
type SessionManager struct {
	store      session.Store
	signer     *session.CookieSigner
	cookieName string
	ttl        time.Duration
}

// NewSessionManager 创建会话管理器
func NewSessionManager(store session.Store, signer *session.CookieSigner, cookieName string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store:      store,
		signer:     signer,
		cookieName: cookieName,
		ttl:        ttl,
	}
}

// Current 返回请求携带的会话，cookie缺失、签名非法或会话过期时返回 ErrSessionNotFound
func (m *SessionManager) Current(ctx context.Context, c *app.RequestContext) (*session.Session, error) {
	raw := string(c.Cookie(m.cookieName))
	if raw == "" {
		return nil, session.ErrSessionNotFound
	}

	sessionID, err := m.signer.Verify(raw)
	if err != nil {
		return nil, session.ErrSessionNotFound
	}

	return m.store.Get(ctx, sessionID)
}

// Ensure 返回请求的会话，不存在时创建新会话并下发签名cookie
func (m *SessionManager) Ensure(ctx context.Context, c *app.RequestContext) (*session.Session, error) {
	if sess, err := m.Current(ctx, c); err == nil {
		return sess, nil
	}

	sess := &session.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.setCookie(c, sess.ID)
	logger.Ctx(ctx).Debug().Str("session_id", sess.ID).Msg("创建新会话")
	return sess, nil
}

// Save 回写会话状态
func (m *SessionManager) Save(ctx context.Context, sess *session.Session) error {
	return m.store.Save(ctx, sess)
}

func (m *SessionManager) setCookie(c *app.RequestContext, sessionID string) {
	cookie := &protocol.Cookie{}
	cookie.SetKey(m.cookieName)
	cookie.SetValue(m.signer.Sign(sessionID))
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSameSite(protocol.CookieSameSiteLaxMode)
	if m.ttl > 0 {
		cookie.SetMaxAge(int(m.ttl.Seconds()))
	}
	c.Response.Header.SetCookie(cookie)
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/constants"
	"github.com/qween-beth/careerstack/internal/types"
)

// TestInMemoryStoreRoundTrip 会话连同简历洞察完整往返
func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess := &Session{
		ID:             "sess-1",
		CreatedAt:      time.Now(),
		SubmissionUUID: "sub-uuid-1",
		AnalysisStatus: constants.StatusAnalysisCompleted,
		Insights: &types.ResumeInsights{
			KeySkills:         []string{"Go", "SQL"},
			ExperienceSummary: "Backend engineer.",
			ExperienceLevel:   "mid",
		},
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-uuid-1", got.SubmissionUUID)
	require.NotNil(t, got.Insights)
	assert.Equal(t, []string{"Go", "SQL"}, got.Insights.KeySkills, "洞察应在会话中完整保留")

	// ResumeContext 转换
	rc := got.ResumeContext()
	require.NotNil(t, rc)
	assert.Equal(t, "sub-uuid-1", rc.SubmissionUUID)
	assert.NotNil(t, rc.Insights)
}

// TestInMemoryStoreNotFound 不存在的会话返回哨兵错误
func TestInMemoryStoreNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	// 删除不存在的会话静默成功
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}

// TestResumeContextWithoutResume 无简历的会话返回nil上下文
func TestResumeContextWithoutResume(t *testing.T) {
	sess := &Session{ID: "sess-2"}
	assert.Nil(t, sess.ResumeContext())

	var nilSess *Session
	assert.Nil(t, nilSess.ResumeContext())
}

// TestCookieSignerRoundTrip 签名后的cookie可以被校验还原
func TestCookieSignerRoundTrip(t *testing.T) {
	signer, err := NewCookieSigner("unit-test-secret")
	require.NoError(t, err)

	cookie := signer.Sign("session-abc-123")
	got, err := signer.Verify(cookie)
	require.NoError(t, err)
	assert.Equal(t, "session-abc-123", got)
}

// TestCookieSignerRejectsTampering 篡改的cookie必须被拒绝
func TestCookieSignerRejectsTampering(t *testing.T) {
	signer, err := NewCookieSigner("unit-test-secret")
	require.NoError(t, err)

	cookie := signer.Sign("session-abc-123")

	// 篡改会话ID
	tampered := "session-evil-999" + cookie[len("session-abc-123"):]
	_, err = signer.Verify(tampered)
	assert.True(t, errors.Is(err, ErrInvalidCookie))

	// 错误的密钥
	otherSigner, err := NewCookieSigner("different-secret")
	require.NoError(t, err)
	_, err = otherSigner.Verify(cookie)
	assert.True(t, errors.Is(err, ErrInvalidCookie))

	// 缺少签名段
	_, err = signer.Verify("no-signature-here")
	assert.True(t, errors.Is(err, ErrInvalidCookie))
}

// TestCookieSignerEmptySecret 空密钥拒绝创建
func TestCookieSignerEmptySecret(t *testing.T) {
	_, err := NewCookieSigner("  ")
	assert.Error(t, err)
}

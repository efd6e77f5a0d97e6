package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCookie cookie格式错误或签名校验失败
var ErrInvalidCookie = errors.New("会话cookie非法或签名不匹配")

// CookieSigner 用HMAC-SHA256给会话ID签名，防止客户端伪造会话
// cookie值格式: <sessionID>.<base64url(hmac)>
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner 创建签名器，secret 来自配置的 SECRET_KEY
func NewCookieSigner(secret string) (*CookieSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("会话签名密钥不能为空")
	}
	return &CookieSigner{secret: []byte(secret)}, nil
}

// Sign 生成带签名的cookie值
func (c *CookieSigner) Sign(sessionID string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionID))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return sessionID + "." + sig
}

// Verify 校验cookie值并返回其中的会话ID
func (c *CookieSigner) Verify(cookieValue string) (string, error) {
	idx := strings.LastIndex(cookieValue, ".")
	if idx <= 0 || idx == len(cookieValue)-1 {
		return "", ErrInvalidCookie
	}
	sessionID := cookieValue[:idx]
	gotSig, err := base64.RawURLEncoding.DecodeString(cookieValue[idx+1:])
	if err != nil {
		return "", ErrInvalidCookie
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionID))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return "", ErrInvalidCookie
	}
	return sessionID, nil
}

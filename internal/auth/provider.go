package auth

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
)

// 会话 cookie 名称（浏览器端私有接口约定）
const (
	sessionCookieName = "cr00"
	csrfCookieName    = "csrfToken"
)

// ErrMissingSession 会话 cookie 缺失，当次调用无法鉴权
var ErrMissingSession = errors.New("missing session token")

// Provider 从会话状态派生每次请求的 csrftoken。
// 派生结果不缓存：cr00 可能在两次调用之间被刷新。
type Provider struct {
	session *Session
}

func NewProvider(session *Session) *Provider {
	return &Provider{session: session}
}

// Credential 返回本次请求使用的 csrftoken。
// 浏览器已有 csrfToken cookie 时直接使用；否则取 cr00 的 md5。
// 这只是接口的完整性校验口令，不是安全边界。
func (p *Provider) Credential() (string, error) {
	if token, ok := p.session.Cookie(csrfCookieName); ok {
		return token, nil
	}
	cr00, ok := p.session.Cookie(sessionCookieName)
	if !ok {
		return "", ErrMissingSession
	}
	sum := md5.Sum([]byte(cr00))
	return hex.EncodeToString(sum[:]), nil
}

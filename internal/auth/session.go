package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zhitaogpt/BinanceAlphaTool/pkg/secretstore"
)

// Session 会话状态：交易所私有接口鉴权所需的 cookie 和附加 header。
// cookie 可能在运行中被外部刷新，所以全部读写都走锁。
type Session struct {
	mu      sync.RWMutex
	cookies map[string]string
	headers map[string]string
}

func NewSession(cookies, headers map[string]string) *Session {
	if cookies == nil {
		cookies = map[string]string{}
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return &Session{cookies: cookies, headers: headers}
}

// Cookie 读取单个 cookie 值
func (s *Session) Cookie(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cookies[name]
	return v, ok && v != ""
}

// SetCookie 更新单个 cookie（会话轮换）
func (s *Session) SetCookie(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[name] = value
}

// Cookies 返回 cookie 副本
func (s *Session) Cookies() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		out[k] = v
	}
	return out
}

// ExtraHeaders 返回附加 header 副本（会话文件里带的 User-Agent 等）
func (s *Session) ExtraHeaders() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.headers))
	for k, v := range s.headers {
		out[k] = v
	}
	return out
}

// sessionFile 会话文件的 JSON 结构
type sessionFile struct {
	Cookies map[string]string `json:"cookies"`
	Headers map[string]string `json:"headers"`
}

// LoadSessionFile 从文件加载会话。
// 支持两种格式：JSON（{"cookies":{...},"headers":{...}} 或扁平 cookie map）
// 和浏览器复制出来的原始 Cookie 头一行文本。
func LoadSessionFile(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// 去掉 UTF-8 BOM（Windows 导出文件常见）
	text := strings.TrimPrefix(strings.TrimSpace(string(b)), "\ufeff")
	if text == "" {
		return nil, fmt.Errorf("会话文件为空: %s", path)
	}

	if strings.HasPrefix(text, "{") {
		var sf sessionFile
		if err := json.Unmarshal([]byte(text), &sf); err != nil {
			return nil, fmt.Errorf("解析会话 JSON 失败: %w", err)
		}
		if sf.Cookies == nil && sf.Headers == nil {
			// 扁平格式：整个对象就是 cookie map
			flat := map[string]string{}
			if err := json.Unmarshal([]byte(text), &flat); err != nil {
				return nil, fmt.Errorf("解析会话 JSON 失败: %w", err)
			}
			return NewSession(flat, nil), nil
		}
		return NewSession(sf.Cookies, sf.Headers), nil
	}

	return NewSession(parseCookieHeader(text), nil), nil
}

// parseCookieHeader 解析 "a=1; b=2" 形式的 Cookie 头
func parseCookieHeader(raw string) map[string]string {
	result := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		result[name] = value
	}
	return result
}

const secretStoreKey = "trader/session_cookies"

// LoadSessionSecret 从加密 KV 加载会话 cookie
func LoadSessionSecret(store *secretstore.Store) (*Session, error) {
	cookies, found, err := store.GetJSONMap(secretStoreKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("密钥库中没有会话 cookie")
	}
	return NewSession(cookies, nil), nil
}

// SaveSessionSecret 把会话 cookie 写入加密 KV
func SaveSessionSecret(store *secretstore.Store, s *Session) error {
	return store.SetJSONMap(secretStoreKey, s.Cookies())
}

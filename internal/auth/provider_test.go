package auth

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"testing"
)

// TestCredentialFromCr00 csrftoken 应该是 cr00 的 md5 十六进制
func TestCredentialFromCr00(t *testing.T) {
	session := NewSession(map[string]string{"cr00": "session-value-123"}, nil)
	provider := NewProvider(session)

	token, err := provider.Credential()
	if err != nil {
		t.Fatalf("派生凭证失败: %v", err)
	}

	sum := md5.Sum([]byte("session-value-123"))
	want := hex.EncodeToString(sum[:])
	if token != want {
		t.Errorf("csrftoken 应该为 %s，实际为 %s", want, token)
	}
	if len(token) != 32 {
		t.Errorf("md5 十六进制长度应该为 32，实际为 %d", len(token))
	}
}

// TestCredentialPrefersCsrfCookie 已有 csrfToken cookie 时直接使用
func TestCredentialPrefersCsrfCookie(t *testing.T) {
	session := NewSession(map[string]string{
		"cr00":      "session-value",
		"csrfToken": "browser-token",
	}, nil)
	provider := NewProvider(session)

	token, err := provider.Credential()
	if err != nil {
		t.Fatalf("派生凭证失败: %v", err)
	}
	if token != "browser-token" {
		t.Errorf("应该直接使用 csrfToken cookie，实际为 %s", token)
	}
}

// TestCredentialMissingSession cr00 缺失时返回 ErrMissingSession
func TestCredentialMissingSession(t *testing.T) {
	provider := NewProvider(NewSession(nil, nil))

	if _, err := provider.Credential(); !errors.Is(err, ErrMissingSession) {
		t.Errorf("缺失会话应该返回 ErrMissingSession，实际为 %v", err)
	}

	// 空值等同缺失
	provider = NewProvider(NewSession(map[string]string{"cr00": ""}, nil))
	if _, err := provider.Credential(); !errors.Is(err, ErrMissingSession) {
		t.Errorf("cr00 为空应该返回 ErrMissingSession，实际为 %v", err)
	}
}

// TestCredentialNotCached cr00 刷新后凭证跟着变
func TestCredentialNotCached(t *testing.T) {
	session := NewSession(map[string]string{"cr00": "old"}, nil)
	provider := NewProvider(session)

	first, err := provider.Credential()
	if err != nil {
		t.Fatal(err)
	}

	session.SetCookie("cr00", "new")
	second, err := provider.Credential()
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("会话刷新后凭证应该变化，不能缓存旧值")
	}
}

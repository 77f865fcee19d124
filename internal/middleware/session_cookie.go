package middleware

import (
	"net/http"
	"time"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "token"

// CookieConfig はセッションCookieの属性設定。
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// NewSessionCookie はセッショントークンを格納するCookieを生成する。
// HttpOnly・SameSite=Strictで、JavaScriptからは読み取れない。
func NewSessionCookie(cfg CookieConfig, token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearSessionCookie は発行時と同じ属性でセッションCookieを削除するCookieを生成する。
func ClearSessionCookie(cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

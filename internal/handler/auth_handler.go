// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/writewise/internal/auth"
	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	// oauthStateMaxAge はstate Cookieの有効期間（秒）。
	oauthStateMaxAge = 600
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, string, error)
	Login(ctx context.Context, in auth.LoginInput) (*model.User, string, error)
	OAuthEnabled() bool
	GetLoginURL(state string) (string, error)
	HandleOAuthCallback(ctx context.Context, code string) (*model.User, string, error)
	CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error)
	Logout(identity *model.Identity)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendURL はOAuthフロー完了後のリダイレクト先。
	FrontendURL string
	Cookie      middleware.CookieConfig
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	config.FrontendURL = strings.TrimRight(config.FrontendURL, "/")
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// authResponse はサインアップ・ログイン・現在ユーザー取得のレスポンス。
type authResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Signup はローカルユーザーを登録し、セッションCookieを発行する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, token, err := h.service.Signup(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, middleware.NewSessionCookie(h.config.Cookie, token))
	middleware.WriteJSON(w, http.StatusCreated, authResponse{Success: true, User: user})
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, token, err := h.service.Login(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, middleware.NewSessionCookie(h.config.Cookie, token))
	middleware.WriteJSON(w, http.StatusOK, authResponse{Success: true, User: user})
}

// Logout はセッションCookieを削除する。トークン自体はサーバー側で失効させない。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(currentIdentity(r))

	http.SetCookie(w, middleware.ClearSessionCookie(h.config.Cookie))
	middleware.WriteJSON(w, http.StatusOK, logoutResponse{Success: true, Message: "Logged out successfully"})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := currentIdentity(r)
	if identity == nil {
		middleware.WriteJSON(w, http.StatusUnauthorized, authResponse{Success: false})
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		// トークンは有効だがアカウントが削除済み
		middleware.WriteJSON(w, http.StatusNotFound, authResponse{Success: false})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, authResponse{Success: true, User: user})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	url, err := h.service.GetLoginURL(state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, h.stateCookie(state, oauthStateMaxAge))
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback はOAuthコールバックを処理する。
// 失敗時はフロントエンドのログイン画面へエラー付きでリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.service.OAuthEnabled() {
		handleServiceError(w, model.NewOAuthDisabledError())
		return
	}

	query := r.URL.Query()
	stateCookie, cookieErr := r.Cookie(oauthStateCookie)
	http.SetCookie(w, h.stateCookie("", -1))

	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error", slog.String("error", providerErr))
		h.redirectAuthFailure(w, r)
		return
	}

	// 1. stateの検証
	state := query.Get("state")
	if cookieErr != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		h.redirectAuthFailure(w, r)
		return
	}

	// 2. 認可コードの取得
	code := query.Get("code")
	if code == "" {
		slog.Warn("oauth callback without authorization code")
		h.redirectAuthFailure(w, r)
		return
	}

	// 3. 認証処理
	_, token, err := h.service.HandleOAuthCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectAuthFailure(w, r)
		return
	}

	// 4. セッションCookieを設定してフロントエンドにリダイレクト
	http.SetCookie(w, middleware.NewSessionCookie(h.config.Cookie, token))
	http.Redirect(w, r, h.config.FrontendURL+"/dashboard?isLoggedIn=true", http.StatusFound)
}

func (h *AuthHandler) redirectAuthFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.FrontendURL+"/login?error=google_auth_failed", http.StatusFound)
}

// stateCookie はOAuth state用のCookieを生成する。
// IdPからのトップレベル遷移で送信されるようSameSite=Laxにする。
func (h *AuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

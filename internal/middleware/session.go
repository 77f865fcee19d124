// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/writewise/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIdentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はセッショントークンの検証インターフェース。
// auth.TokenCodecが実装する。
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// SessionPolicy はトークンが無い・無効な場合の扱いを表す。
type SessionPolicy int

const (
	// RequireSession はトークンが無い・無効な場合に401を返す。
	RequireSession SessionPolicy = iota
	// OptionalSession はトークンが無い・無効な場合も匿名としてハンドラを実行する。
	OptionalSession
)

// String はログ出力用の名前を返す。
func (p SessionPolicy) String() string {
	if p == OptionalSession {
		return "optional"
	}
	return "required"
}

// NewSessionMiddleware はCookieのセッショントークンを検証し、
// 認証済みIdentityをリクエストコンテキストに注入するミドルウェアを返す。
// 検証処理はポリシーに関わらず共通で、失敗時の扱いのみが異なる。
// 先行するセッションミドルウェアが注入済みの場合は再検証しない。
func NewSessionMiddleware(verifier TokenVerifier, policy SessionPolicy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, reason := resolveIdentity(verifier, r)
			if identity == nil {
				if policy == RequireSession {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(reason))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			annotateUserID(r.Context(), identity.SubjectID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// resolveIdentity はCookieからIdentityを復元する。
// 復元できない場合は401に使うメッセージを返す。
func resolveIdentity(verifier TokenVerifier, r *http.Request) (*model.Identity, string) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, model.MsgNoTokenProvided
	}

	identity, err := verifier.Verify(cookie.Value)
	if err != nil || identity == nil || identity.SubjectID == "" {
		return nil, model.MsgInvalidToken
	}
	return identity, ""
}

// IdentityFromContext はリクエストコンテキストから認証済みIdentityを取得する。
// 匿名リクエストではfalseを返す。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// 呼び出し元による変更の影響を受けないよう、コピーを格納する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	if identity == nil {
		return ctx
	}
	copied := *identity
	return context.WithValue(ctx, identityContextKey, &copied)
}

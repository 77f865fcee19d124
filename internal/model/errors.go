// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはフロントエンドがそのまま表示する文言であり、既存クライアントとの互換のため英語で固定する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（レスポンスの "error" フィールド）
	Category string // カテゴリ: auth, validation, resource, system
	Action   string // ユーザー向け対処方法（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountLinkRefused = "ACCOUNT_LINK_REFUSED"
	ErrCodeOAuthDisabled      = "OAUTH_DISABLED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// 認証失敗時のメッセージ。Cookieの欠落と検証失敗を区別するのはこの2つのみ。
const (
	MsgNoTokenProvided = "Unauthorized: No token provided"
	MsgInvalidToken    = "Unauthorized: Invalid token"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "Please log in again.",
	}
}

// NewForbiddenError は所有者以外による変更操作のエラーを生成する。
// actionには "delete this post" のような動詞句を渡す。
func NewForbiddenError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Not authorized to " + action,
		Category: "auth",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
// resourceには "Post" のような表示名を渡す。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  resource + " not found",
		Category: "resource",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already in use",
		Category: "validation",
		Action:   "Log in with the existing account or use a different email address.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの存在有無を推測されないよう、原因に関わらず同じ文言を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
	}
}

// NewAccountLinkRefusedError は外部IdPのアカウントを既存アカウントへ紐付けられない場合のエラーを生成する。
func NewAccountLinkRefusedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountLinkRefused,
		Message:  "An account with this email already exists",
		Category: "auth",
		Action:   "Log in with your email and password instead.",
	}
}

// NewOAuthDisabledError はOAuthが未設定の場合のエラーを生成する。
func NewOAuthDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthDisabled,
		Message:  "Google login is not available",
		Category: "system",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the time given in Retry-After.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Please try again later.",
	}
}

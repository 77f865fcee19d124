// Package auth はローカル認証・Google OAuth・セッショントークンを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/repository"
)

var tracer = otel.Tracer("github.com/hitoshi/writewise/internal/auth")

// 認証イベント名。メトリクスのラベルとログに使う。
const (
	EventSignup     = "signup"
	EventLogin      = "login"
	EventOAuthLogin = "oauth_login"
	EventLogout     = "logout"
)

// EventRecorder は認証イベントの計測インターフェース。
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(identity model.Identity) (string, error)
}

// ServiceDeps は認証サービスの依存関係。OAuthとEventsは省略できる。
type ServiceDeps struct {
	Users      repository.UserRepository
	Identities *IdentityStore
	Hasher     PasswordHasher
	Tokens     TokenIssuer
	OAuth      OAuthProvider
	Events     EventRecorder
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users      repository.UserRepository
	identities *IdentityStore
	hasher     PasswordHasher
	tokens     TokenIssuer
	oauth      OAuthProvider
	events     EventRecorder
}

// NewService はServiceを生成する。
func NewService(deps ServiceDeps) *Service {
	events := deps.Events
	if events == nil {
		events = noopRecorder{}
	}
	return &Service{
		users:      deps.Users,
		identities: deps.Identities,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		oauth:      deps.OAuth,
		events:     events,
	}
}

// Signup はローカルユーザーを登録し、セッショントークンを発行する。
func (s *Service) Signup(ctx context.Context, in SignupInput) (user *model.User, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Signup")
	defer func() { endSpan(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		s.events.RecordAuthEvent(EventSignup, "invalid")
		return nil, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}

	user, err = s.identities.RegisterLocal(ctx, in.Name, in.Email, hash)
	if err != nil {
		s.events.RecordAuthEvent(EventSignup, outcomeOf(err))
		return nil, "", err
	}

	token, err = s.issue(user)
	if err != nil {
		return nil, "", err
	}

	s.events.RecordAuthEvent(EventSignup, "success")
	slog.Info("user signed up", slog.String("user_id", user.ID))
	return user, token, nil
}

// Login はメールアドレスとパスワードで認証し、セッショントークンを発行する。
// 未登録・パスワード未設定・不一致はいずれも同じINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (user *model.User, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		s.events.RecordAuthEvent(EventLogin, "invalid")
		return nil, "", err
	}

	user, err = s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		s.rejectLogin(user)
		return nil, "", model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Verify(in.Password, *user.PasswordHash)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		s.rejectLogin(user)
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err = s.issue(user)
	if err != nil {
		return nil, "", err
	}

	s.events.RecordAuthEvent(EventLogin, "success")
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

func (s *Service) rejectLogin(user *model.User) {
	s.events.RecordAuthEvent(EventLogin, "invalid_credentials")
	if user != nil {
		slog.Warn("login failed", slog.String("user_id", user.ID), slog.String("provider", string(user.Provider)))
		return
	}
	slog.Warn("login failed", slog.String("reason", "unknown email"))
}

// OAuthEnabled は外部IdPログインが利用可能かを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL は外部IdPの認可画面へのURLを返す。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", model.NewOAuthDisabledError()
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleOAuthCallback は認可コードからユーザーを解決し、セッショントークンを発行する。
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) (user *model.User, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.HandleOAuthCallback")
	defer func() { endSpan(span, err) }()

	if s.oauth == nil {
		return nil, "", model.NewOAuthDisabledError()
	}

	ext, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.events.RecordAuthEvent(EventOAuthLogin, "exchange_failed")
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	span.SetAttributes(attribute.String("auth.provider", string(ext.Provider)))

	user, err = s.identities.FindOrCreateExternal(ctx, *ext)
	if err != nil {
		s.events.RecordAuthEvent(EventOAuthLogin, outcomeOf(err))
		return nil, "", err
	}

	token, err = s.issue(user)
	if err != nil {
		return nil, "", err
	}

	s.events.RecordAuthEvent(EventOAuthLogin, "success")
	slog.Info("user logged in with external identity",
		slog.String("user_id", user.ID),
		slog.String("provider", string(ext.Provider)),
	)
	return user, token, nil
}

// CurrentUser はIdentityに対応するユーザーを返す。見つからない場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError(model.MsgNoTokenProvided)
	}
	user, err := s.users.FindByID(ctx, identity.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find current user: %w", err)
	}
	return user, nil
}

// Logout はログアウトを記録する。トークンはステートレスなため、Cookieの削除のみで完結する。
func (s *Service) Logout(identity *model.Identity) {
	s.events.RecordAuthEvent(EventLogout, "success")
	if identity != nil {
		slog.Info("user logged out", slog.String("user_id", identity.SubjectID))
	}
}

func (s *Service) issue(user *model.User) (string, error) {
	token, err := s.tokens.Issue(model.IdentityOf(user))
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return token, nil
}

// outcomeOf はエラーをメトリクスのoutcomeラベルに変換する。
func outcomeOf(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeDuplicateEmail:
			return "duplicate_email"
		case model.ErrCodeAccountLinkRefused:
			return "link_refused"
		}
		return "rejected"
	}
	return "error"
}

// endSpan はエラー時にスパンへ記録してから終了する。
// 利用者起因のAPIErrorはスパンのエラーとして扱わない。
func endSpan(span trace.Span, err error) {
	var apiErr *model.APIError
	if err != nil && !errors.As(err, &apiErr) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

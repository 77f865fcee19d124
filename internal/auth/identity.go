package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/repository"
)

// ExternalIdentity は外部IdPから取得したユーザー情報を表す。
type ExternalIdentity struct {
	Email         string
	Name          string
	Provider      model.Provider
	ProviderID    string
	EmailVerified bool
}

// IdentityStoreConfig はIdentityStoreの設定。
type IdentityStoreConfig struct {
	// MergeByEmail が有効な場合、外部IdPのメールアドレスが既存アカウントと一致すれば
	// そのアカウントとしてログインさせる。IdPがメールアドレスを検証済みと報告した場合に限る。
	MergeByEmail bool
	Now          func() time.Time
}

// IdentityStore はローカル登録と外部IdPログインのユーザー解決を行う。
type IdentityStore struct {
	users        repository.UserRepository
	mergeByEmail bool
	now          func() time.Time
}

// NewIdentityStore はIdentityStoreを生成する。
func NewIdentityStore(users repository.UserRepository, cfg IdentityStoreConfig) *IdentityStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IdentityStore{
		users:        users,
		mergeByEmail: cfg.MergeByEmail,
		now:          cfg.Now,
	}
}

// RegisterLocal はメールアドレスとパスワードで認証するユーザーを作成する。
// メールアドレスが既に使われている場合はDUPLICATE_EMAILのAPIErrorを返す。
func (s *IdentityStore) RegisterLocal(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: &passwordHash,
		Provider:     model.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// FindOrCreateExternal は外部IdPのユーザーに対応するアカウントを返す。
// メールアドレスが未登録なら新規作成し、登録済みなら既存アカウントを返す。
// 別の認証方式で作られたアカウントへの紐付けは設定とメール検証状態によって拒否される。
func (s *IdentityStore) FindOrCreateExternal(ctx context.Context, ext ExternalIdentity) (*model.User, error) {
	if ext.Email == "" {
		return nil, errors.New("external identity has no email")
	}

	existing, err := s.users.FindByEmail(ctx, ext.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return s.resolveExisting(existing, ext)
	}

	now := s.now()
	providerID := ext.ProviderID
	user := &model.User{
		ID:         uuid.New().String(),
		Email:      ext.Email,
		Name:       ext.Name,
		Provider:   ext.Provider,
		ProviderID: &providerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if user.Name == "" {
		user.Name = ext.Email
	}

	err = s.users.Create(ctx, user)
	if err == nil {
		slog.Info("user created from external identity",
			slog.String("user_id", user.ID),
			slog.String("provider", string(ext.Provider)),
		)
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}

	// 同じメールアドレスの作成が並行して先に完了した。1度だけ読み直す。
	existing, err = s.users.FindByEmail(ctx, ext.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read user by email: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("user vanished after duplicate email on create: %s", ext.Email)
	}
	return s.resolveExisting(existing, ext)
}

// resolveExisting は既存アカウントへのログインを許可するかを判定する。
func (s *IdentityStore) resolveExisting(existing *model.User, ext ExternalIdentity) (*model.User, error) {
	if existing.Provider == ext.Provider {
		return existing, nil
	}

	if !s.mergeByEmail || !ext.EmailVerified {
		slog.Warn("external identity link refused",
			slog.String("user_id", existing.ID),
			slog.String("existing_provider", string(existing.Provider)),
			slog.String("incoming_provider", string(ext.Provider)),
			slog.Bool("email_verified", ext.EmailVerified),
		)
		return nil, model.NewAccountLinkRefusedError()
	}

	slog.Warn("external identity merged into existing account",
		slog.String("user_id", existing.ID),
		slog.String("existing_provider", string(existing.Provider)),
		slog.String("incoming_provider", string(ext.Provider)),
	)
	return existing, nil
}

// Package user はユーザープロフィールとアカウント管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/writewise/internal/auth"
	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/ownership"
	"github.com/hitoshi/writewise/internal/repository"
)

// ProfileInput はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Service はユーザー管理のサービス層。
// プロフィール参照・更新、退会、ダッシュボード集計を提供する。
type Service struct {
	users repository.UserRepository
	stats repository.StatsRepository
	guard *ownership.Guard[*model.User]
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, stats repository.StatsRepository) *Service {
	return &Service{
		users: users,
		stats: stats,
		guard: ownership.NewGuard[*model.User]("User", users.FindByID),
	}
}

// Profile は指定IDのユーザーの公開プロフィールを返す。
func (s *Service) Profile(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("User")
	}
	return user, nil
}

// UpdateProfile は本人のみがプロフィールを更新できる。
// メールアドレスが他のユーザーと重複する場合はDUPLICATE_EMAIL。
func (s *Service) UpdateProfile(ctx context.Context, identity *model.Identity, id string, in ProfileInput) (*model.User, error) {
	current, err := s.guard.Authorize(ctx, identity, id, "update this profile")
	if err != nil {
		return nil, err
	}

	update, err := normalizeProfile(in)
	if err != nil {
		return nil, err
	}
	if update.Name == nil && update.Email == nil {
		return current, nil
	}

	user, err := s.users.UpdateProfile(ctx, id, update)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, model.NewDuplicateEmailError()
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("User")
	}

	slog.Info("profile updated", slog.String("user_id", id))
	return user, nil
}

// DeleteAccount は本人のみがアカウントを削除できる。
// 記事・コメント・いいねはデータベースのCASCADEで削除される。
func (s *Service) DeleteAccount(ctx context.Context, identity *model.Identity, id string) error {
	if _, err := s.guard.Authorize(ctx, identity, id, "delete this account"); err != nil {
		return err
	}

	if err := s.users.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("アカウントの削除に失敗しました: %w", err)
	}

	slog.Info("account deleted", slog.String("user_id", id))
	return nil
}

// Stats はidentityのダッシュボード集計を返す。
func (s *Service) Stats(ctx context.Context, identity *model.Identity) (*model.UserStats, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError(model.MsgNoTokenProvided)
	}
	stats, err := s.stats.UserStats(ctx, identity.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー統計の取得に失敗しました: %w", err)
	}
	return stats, nil
}

func normalizeProfile(in ProfileInput) (model.ProfileUpdate, error) {
	var update model.ProfileUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return update, model.NewValidationError("Name cannot be empty")
		}
		update.Name = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if !auth.ValidEmail(email) {
			return update, model.NewValidationError("Invalid email format")
		}
		update.Email = &email
	}
	return update, nil
}

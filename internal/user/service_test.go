package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/repository"
	"github.com/hitoshi/writewise/internal/repository/memrepo"
)

// --- モック定義 ---

type mockStatsRepo struct {
	userStatsFn func(ctx context.Context, userID string) (*model.UserStats, error)
}

func (m *mockStatsRepo) UserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return m.userStatsFn(ctx, userID)
}

type mockUserRepo struct {
	repository.UserRepository
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

// --- フィクスチャ ---

func newService(t *testing.T) (*Service, *memrepo.Store, *model.User, *model.User) {
	t.Helper()
	store := memrepo.New()
	alice := store.SeedUser(model.User{Name: "Alice", Email: "alice@example.com"})
	bob := store.SeedUser(model.User{Name: "Bob", Email: "bob@example.com"})
	return NewService(store.Users(), store.Stats()), store, alice, bob
}

func identityOf(u *model.User) *model.Identity {
	id := model.IdentityOf(u)
	return &id
}

func strPtr(s string) *string { return &s }

func requireAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
	return apiErr
}

// --- Profile ---

func TestProfile(t *testing.T) {
	svc, _, alice, _ := newService(t)

	user, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = svc.Profile(context.Background(), "missing")
	apiErr := requireAPIError(t, err, model.ErrCodeNotFound)
	assert.Equal(t, "User not found", apiErr.Message)
}

// --- UpdateProfile ---

func TestUpdateProfile_Owner(t *testing.T) {
	svc, _, alice, _ := newService(t)

	user, err := svc.UpdateProfile(context.Background(), identityOf(alice), alice.ID, ProfileInput{
		Name:  strPtr("  Alice Liddell "),
		Email: strPtr("alice@wonderland.example"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.Name)
	assert.Equal(t, "alice@wonderland.example", user.Email)
}

func TestUpdateProfile_NoFields_ReturnsCurrent(t *testing.T) {
	svc, _, alice, _ := newService(t)

	user, err := svc.UpdateProfile(context.Background(), identityOf(alice), alice.ID, ProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, alice.Email, user.Email)
}

func TestUpdateProfile_OtherUser_Forbidden(t *testing.T) {
	svc, store, alice, bob := newService(t)

	_, err := svc.UpdateProfile(context.Background(), identityOf(bob), alice.ID, ProfileInput{Name: strPtr("hacked")})
	apiErr := requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Equal(t, "Not authorized to update this profile", apiErr.Message)

	unchanged, err := store.Users().FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", unchanged.Name)
}

func TestUpdateProfile_DuplicateEmail(t *testing.T) {
	svc, _, alice, _ := newService(t)

	_, err := svc.UpdateProfile(context.Background(), identityOf(alice), alice.ID, ProfileInput{Email: strPtr("BOB@example.com")})
	apiErr := requireAPIError(t, err, model.ErrCodeDuplicateEmail)
	assert.Equal(t, "Email already in use", apiErr.Message)
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc, _, alice, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, identityOf(alice), alice.ID, ProfileInput{Name: strPtr("  ")})
	apiErr := requireAPIError(t, err, model.ErrCodeValidation)
	assert.Equal(t, "Name cannot be empty", apiErr.Message)

	_, err = svc.UpdateProfile(ctx, identityOf(alice), alice.ID, ProfileInput{Email: strPtr("not-an-email")})
	apiErr = requireAPIError(t, err, model.ErrCodeValidation)
	assert.Equal(t, "Invalid email format", apiErr.Message)
}

// --- DeleteAccount ---

func TestDeleteAccount_CascadesOwnedContent(t *testing.T) {
	svc, store, alice, bob := newService(t)
	ctx := context.Background()

	post := &model.Post{ID: "p1", Title: "t", Status: model.PostStatusPublished, AuthorID: alice.ID, CreatedAt: time.Now()}
	require.NoError(t, store.Posts().Create(ctx, post))
	_, _, err := store.Likes().Toggle(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, identityOf(alice), alice.ID))

	gone, err := store.Users().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	p, err := store.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDeleteAccount_OtherUser_Forbidden(t *testing.T) {
	svc, _, alice, bob := newService(t)

	err := svc.DeleteAccount(context.Background(), identityOf(bob), alice.ID)
	apiErr := requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Equal(t, "Not authorized to delete this account", apiErr.Message)
}

func TestDeleteAccount_MissingUser_NotFoundBeforeForbidden(t *testing.T) {
	svc, _, _, bob := newService(t)

	err := svc.DeleteAccount(context.Background(), identityOf(bob), "missing")
	requireAPIError(t, err, model.ErrCodeNotFound)
}

func TestDeleteAccount_RepositoryError(t *testing.T) {
	dbErr := errors.New("db down")
	target := &model.User{ID: "u1"}
	repo := &mockUserRepo{
		findByIDFn:   func(ctx context.Context, id string) (*model.User, error) { return target, nil },
		deleteByIDFn: func(ctx context.Context, id string) error { return dbErr },
	}
	svc := NewService(repo, &mockStatsRepo{})

	err := svc.DeleteAccount(context.Background(), &model.Identity{SubjectID: "u1"}, "u1")
	assert.ErrorIs(t, err, dbErr)
}

// --- Stats ---

func TestStats(t *testing.T) {
	want := &model.UserStats{TotalPosts: 3, Drafts: 1, Published: 2, TotalLikes: 5, TotalComments: 4}
	var gotUserID string
	svc := NewService(&mockUserRepo{}, &mockStatsRepo{userStatsFn: func(ctx context.Context, userID string) (*model.UserStats, error) {
		gotUserID = userID
		return want, nil
	}})

	stats, err := svc.Stats(context.Background(), &model.Identity{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, want, stats)
	assert.Equal(t, "u1", gotUserID)
	assert.Zero(t, stats.TotalViews)

	_, err = svc.Stats(context.Background(), nil)
	requireAPIError(t, err, model.ErrCodeUnauthorized)
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hitoshi/writewise/internal/model"
)

const testUserID = "6a0d8f0e-2c1b-4f53-9a57-0c4b7e3d2a11"

var userRowColumns = []string{"id", "email", "name", "password_hash", "provider", "provider_id", "created_at", "updated_at"}

func TestPostgresUserRepo_FindByID_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(testUserID, "alice@example.com", "Alice", "$2a$10$hash", "local", nil, now, now))

	user, err := repo.FindByID(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Email != "alice@example.com" || user.Provider != model.ProviderLocal {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PasswordHash == nil || *user.PasswordHash != "$2a$10$hash" {
		t.Errorf("PasswordHash = %v, want hash", user.PasswordHash)
	}
	if user.ProviderID != nil {
		t.Errorf("ProviderID = %v, want nil", *user.ProviderID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUserRepo_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	user, err := repo.FindByID(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestPostgresUserRepo_FindByID_MalformedIDSkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	user, err := repo.FindByID(context.Background(), "not-a-uuid")
	if err != nil || user != nil {
		t.Fatalf("FindByID() = %v, %v; want nil, nil", user, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected query: %v", err)
	}
}

func TestPostgresUserRepo_FindByEmail_CaseInsensitive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(testUserID, "alice@example.com", "Alice", nil, "google", "g-123", now, now))

	user, err := repo.FindByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Provider != model.ProviderGoogle {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != nil {
		t.Error("expected nil password hash for google user")
	}
	if user.ProviderID == nil || *user.ProviderID != "g-123" {
		t.Errorf("ProviderID = %v, want g-123", user.ProviderID)
	}
}

func TestPostgresUserRepo_FindByEmail_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.FindByEmail(context.Background(), "a@example.com"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPostgresUserRepo_Create_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()
	hash := "$2a$10$hash"

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(testUserID, "alice@example.com", "Alice", &hash, model.ProviderLocal, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.User{
		ID: testUserID, Email: "alice@example.com", Name: "Alice",
		PasswordHash: &hash, Provider: model.ProviderLocal,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostgresUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &model.User{ID: testUserID, Email: "alice@example.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPostgresUserRepo_UpdateProfile_OnlyGivenFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()
	name := "Alice B."

	mock.ExpectQuery(`UPDATE users SET updated_at = NOW\(\), name = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(name, testUserID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(testUserID, "alice@example.com", name, "$2a$10$hash", "local", nil, now, now))

	user, err := repo.UpdateProfile(context.Background(), testUserID, model.ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != name {
		t.Errorf("Name = %q, want %q", user.Name, name)
	}
}

func TestPostgresUserRepo_UpdateProfile_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	email := "taken@example.com"

	mock.ExpectQuery(`UPDATE users SET updated_at = NOW\(\), email = \$1 WHERE id = \$2`).
		WithArgs(email, testUserID).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.UpdateProfile(context.Background(), testUserID, model.ProfileUpdate{Email: &email})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPostgresUserRepo_DeleteByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteByID(context.Background(), testUserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostgresUserRepo_DeleteByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByID(context.Background(), testUserID); err == nil {
		t.Fatal("expected error for missing user, got nil")
	}
}

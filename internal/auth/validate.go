package auth

import (
	"regexp"
	"strings"

	"github.com/hitoshi/writewise/internal/model"
)

const (
	minPasswordLength = 4
	// bcryptは72バイトを超える入力を扱えない
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignupInput はローカル登録の入力。
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginInput はローカルログインの入力。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidEmail はメールアドレスの形式を検証する。
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func (in *SignupInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

// validate は最初に見つかった入力不備をVALIDATION_ERRORとして返す。
func (in SignupInput) validate() error {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return model.NewValidationError("All fields are required")
	}
	if !ValidEmail(in.Email) {
		return model.NewValidationError("Invalid email format")
	}
	if len(in.Password) < minPasswordLength {
		return model.NewValidationError("Password must be at least 4 characters")
	}
	if len(in.Password) > maxPasswordBytes {
		return model.NewValidationError("Password must be at most 72 characters")
	}
	if in.Password != in.ConfirmPassword {
		return model.NewValidationError("Passwords do not match")
	}
	return nil
}

func (in *LoginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

func (in LoginInput) validate() error {
	if in.Email == "" || in.Password == "" {
		return model.NewValidationError("Email and password are required")
	}
	if !ValidEmail(in.Email) {
		return model.NewValidationError("Invalid email format")
	}
	return nil
}

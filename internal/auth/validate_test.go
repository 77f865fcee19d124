package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/writewise/internal/model"
)

func TestSignupInput_Validate(t *testing.T) {
	valid := SignupInput{Name: "Alice", Email: "alice@example.com", Password: "pass", ConfirmPassword: "pass"}

	tests := []struct {
		name    string
		mutate  func(*SignupInput)
		wantMsg string
	}{
		{"valid", func(*SignupInput) {}, ""},
		{"missing name", func(in *SignupInput) { in.Name = "" }, "All fields are required"},
		{"missing confirm", func(in *SignupInput) { in.ConfirmPassword = "" }, "All fields are required"},
		{"bad email", func(in *SignupInput) { in.Email = "alice.example.com" }, "Invalid email format"},
		{"email with space", func(in *SignupInput) { in.Email = "al ice@example.com" }, "Invalid email format"},
		{"short password", func(in *SignupInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "Password must be at least 4 characters"},
		{"long password", func(in *SignupInput) {
			p := strings.Repeat("x", 73)
			in.Password, in.ConfirmPassword = p, p
		}, "Password must be at most 72 characters"},
		{"mismatch", func(in *SignupInput) { in.ConfirmPassword = "other" }, "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var apiErr *model.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, model.ErrCodeValidation, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestLoginInput_Validate(t *testing.T) {
	tests := []struct {
		in      LoginInput
		wantMsg string
	}{
		{LoginInput{Email: "alice@example.com", Password: "x"}, ""},
		{LoginInput{Email: "", Password: "x"}, "Email and password are required"},
		{LoginInput{Email: "alice@example.com"}, "Email and password are required"},
		{LoginInput{Email: "alice", Password: "x"}, "Invalid email format"},
	}

	for _, tt := range tests {
		err := tt.in.validate()
		if tt.wantMsg == "" {
			assert.NoError(t, err)
			continue
		}
		var apiErr *model.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tt.wantMsg, apiErr.Message)
	}
}

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify は一致すればtrueを返す。不一致はエラーではない。
	Verify(plaintext, hash string) (bool, error)
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。範囲外のcostはbcrypt.DefaultCostに置き換える。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はパスワードのbcryptハッシュを返す。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Verify はパスワードとハッシュを照合する。
// ハッシュが壊れている等の照合以外の失敗はエラーとして返し、不一致とは区別する。
func (h *BcryptHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/writewise/internal/model"
)

// DefaultTokenTTL はセッショントークンの既定の有効期間。
const DefaultTokenTTL = 10 * time.Hour

// ErrInvalidToken はトークン検証の失敗を表す。
// 署名不正・期限切れ・形式不正のいずれも区別せずこのエラーを返す。
var ErrInvalidToken = errors.New("invalid token")

// sessionClaims はセッショントークンのペイロード。
type sessionClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenCodecConfig はTokenCodecの設定。
type TokenCodecConfig struct {
	Secret string
	TTL    time.Duration
	// Now は発行時刻・検証時刻の取得に使う。nilの場合はtime.Now。
	Now func() time.Time
}

// TokenCodec はHS256署名のセッショントークンを発行・検証する。
// 秘密鍵はインスタンスごとに保持し、異なる秘密鍵のCodec同士はトークンを受け入れない。
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec はTokenCodecを生成する。秘密鍵が空の場合はエラーを返す。
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenCodec{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。Cookieの有効期限と揃えるために使う。
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue はIdentityを埋め込んだトークンを発行する。
func (c *TokenCodec) Issue(identity model.Identity) (string, error) {
	if identity.SubjectID == "" {
		return "", errors.New("identity subject is required")
	}

	now := c.now()
	claims := sessionClaims{
		ID:    identity.SubjectID,
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify はトークンを検証し、埋め込まれたIdentityを返す。
// HS256以外のアルゴリズム、exp欠落、期限切れ、署名不一致、ペイロード不備はすべてErrInvalidToken。
func (c *TokenCodec) Verify(token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return &model.Identity{
		SubjectID: claims.ID,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}

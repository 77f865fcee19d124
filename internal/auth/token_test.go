package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/writewise/internal/model"
)

var testIdentity = model.Identity{
	SubjectID: "6a0d8f0e-2c1b-4f53-9a57-0c4b7e3d2a11",
	Email:     "alice@example.com",
	Name:      "Alice",
}

// fixedClock は任意に進められるテスト用の時計。
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func newTestCodec(t *testing.T, secret string, clock *fixedClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenCodecConfig{Secret: secret, TTL: DefaultTokenTTL, Now: clock.Now})
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	_, err := NewTokenCodec(TokenCodecConfig{})
	assert.Error(t, err)
}

func TestNewTokenCodec_DefaultTTL(t *testing.T) {
	codec, err := NewTokenCodec(TokenCodecConfig{Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Hour, codec.TTL())
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, "secret-a", clock)

	token, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity, *got)
}

func TestTokenCodec_ClaimsShape(t *testing.T) {
	issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, "secret-a", &fixedClock{t: issued})

	token, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, testIdentity.SubjectID, claims["id"])
	assert.Equal(t, testIdentity.Email, claims["email"])
	assert.Equal(t, testIdentity.Name, claims["name"])
	assert.EqualValues(t, issued.Unix(), claims["iat"])
	assert.EqualValues(t, issued.Add(10*time.Hour).Unix(), claims["exp"])
}

func TestTokenCodec_WrongSecretRejected(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestCodec(t, "secret-a", clock)
	b := newTestCodec(t, "secret-b", clock)

	token, err := a.Issue(testIdentity)
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_Expiry(t *testing.T) {
	issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: issued}
	codec := newTestCodec(t, "secret-a", clock)

	token, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	clock.t = issued.Add(10*time.Hour - time.Second)
	_, err = codec.Verify(token)
	assert.NoError(t, err, "token must be valid just before expiry")

	clock.t = issued.Add(10 * time.Hour)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.t = issued.Add(11 * time.Hour)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_TamperedAndMalformed(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, "secret-a", clock)

	token, err := codec.Issue(testIdentity)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	other, err := codec.Issue(model.Identity{SubjectID: "someone-else", Email: "x@example.com", Name: "X"})
	require.NoError(t, err)
	otherPayload := strings.Split(other, ".")[1]

	tests := map[string]string{
		"empty":           "",
		"garbage":         "not.a.token",
		"swapped payload": parts[0] + "." + otherPayload + "." + parts[2],
		"no signature":    parts[0] + "." + parts[1] + ".",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, "secret-a", &fixedClock{t: now})

	claims := sessionClaims{
		ID: testIdentity.SubjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret-a"))
	require.NoError(t, err)
	_, err = codec.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_RequiresExpAndSubject(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, "secret-a", &fixedClock{t: now})

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		ID: testIdentity.SubjectID,
	}).SignedString([]byte("secret-a"))
	require.NoError(t, err)
	_, err = codec.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("secret-a"))
	require.NoError(t, err)
	_, err = codec.Verify(noID)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_IssueRequiresSubject(t *testing.T) {
	codec := newTestCodec(t, "secret-a", &fixedClock{t: time.Now().Truncate(time.Second)})
	_, err := codec.Issue(model.Identity{Email: "a@example.com"})
	assert.Error(t, err)
}

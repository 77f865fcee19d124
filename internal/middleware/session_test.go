package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/writewise/internal/model"
)

// --- モック定義 ---

type mockTokenVerifier struct {
	verifyFn func(token string) (*model.Identity, error)
	calls    int
}

func (m *mockTokenVerifier) Verify(token string) (*model.Identity, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return nil, errors.New("invalid token")
}

var errTokenRejected = errors.New("invalid token")

// validTokenVerifier は "valid-token" のみを受理するVerifierを返す。
func validTokenVerifier() *mockTokenVerifier {
	return &mockTokenVerifier{
		verifyFn: func(token string) (*model.Identity, error) {
			if token == "valid-token" {
				return &model.Identity{SubjectID: "user-123", Email: "alice@example.com", Name: "Alice"}, nil
			}
			return nil, errTokenRejected
		},
	}
}

func newSessionRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return req
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- テスト ---

func TestSessionMiddleware_Matrix(t *testing.T) {
	tests := []struct {
		name         string
		policy       SessionPolicy
		token        string
		wantStatus   int
		wantError    string
		wantCalled   bool
		wantIdentity bool
	}{
		{"required/no cookie", RequireSession, "", http.StatusUnauthorized, model.MsgNoTokenProvided, false, false},
		{"required/invalid", RequireSession, "tampered", http.StatusUnauthorized, model.MsgInvalidToken, false, false},
		{"required/valid", RequireSession, "valid-token", http.StatusOK, "", true, true},
		{"optional/no cookie", OptionalSession, "", http.StatusOK, "", true, false},
		{"optional/invalid", OptionalSession, "tampered", http.StatusOK, "", true, false},
		{"optional/valid", OptionalSession, "valid-token", http.StatusOK, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewSessionMiddleware(validTokenVerifier(), tt.policy)

			called := false
			var identity *model.Identity
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				identity, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, newSessionRequest(tt.token))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if (identity != nil) != tt.wantIdentity {
				t.Errorf("identity = %+v, want present=%v", identity, tt.wantIdentity)
			}
			if tt.wantIdentity && identity.SubjectID != "user-123" {
				t.Errorf("SubjectID = %q, want %q", identity.SubjectID, "user-123")
			}
			if tt.wantError != "" {
				body := decodeErrorBody(t, w)
				if body.Error != tt.wantError {
					t.Errorf("error = %q, want %q", body.Error, tt.wantError)
				}
				if body.Code != model.ErrCodeUnauthorized {
					t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
				}
			}
		})
	}
}

func TestSessionMiddleware_NoCookie_DoesNotCallVerifier(t *testing.T) {
	verifier := validTokenVerifier()
	handler := NewSessionMiddleware(verifier, OptionalSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), newSessionRequest(""))

	if verifier.calls != 0 {
		t.Errorf("verifier calls = %d, want 0", verifier.calls)
	}
}

func TestSessionMiddleware_ChainedOptionalThenRequired(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCalls  int
	}{
		{"valid token verified once", "valid-token", http.StatusOK, 1},
		{"no cookie rejected", "", http.StatusUnauthorized, 0},
		{"invalid token rejected", "tampered", http.StatusUnauthorized, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := validTokenVerifier()
			handler := NewSessionMiddleware(verifier, OptionalSession)(
				NewSessionMiddleware(verifier, RequireSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				})),
			)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, newSessionRequest(tt.token))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if verifier.calls != tt.wantCalls {
				t.Errorf("verifier calls = %d, want %d", verifier.calls, tt.wantCalls)
			}
		})
	}
}

func TestSessionMiddleware_VerifierReturnsEmptySubject_TreatedAsInvalid(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(token string) (*model.Identity, error) {
			return &model.Identity{}, nil
		},
	}
	handler := NewSessionMiddleware(verifier, RequireSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newSessionRequest("anything"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := decodeErrorBody(t, w); body.Error != model.MsgInvalidToken {
		t.Errorf("error = %q, want %q", body.Error, model.MsgInvalidToken)
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity, ok := IdentityFromContext(req.Context()); ok || identity != nil {
		t.Errorf("IdentityFromContext() = %+v, %v; want nil, false", identity, ok)
	}
}

func TestContextWithIdentity_StoresCopy(t *testing.T) {
	original := &model.Identity{SubjectID: "user-1"}
	ctx := ContextWithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), original)
	original.SubjectID = "user-2"

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if got.SubjectID != "user-1" {
		t.Errorf("SubjectID = %q, want %q", got.SubjectID, "user-1")
	}
}

func TestSessionPolicy_String(t *testing.T) {
	if RequireSession.String() != "required" || OptionalSession.String() != "optional" {
		t.Errorf("unexpected policy names: %s, %s", RequireSession, OptionalSession)
	}
}

func TestSessionCookie_Attributes(t *testing.T) {
	cfg := CookieConfig{Domain: "writewise.example", Secure: true, MaxAge: 10 * time.Hour}

	c := NewSessionCookie(cfg, "jwt")
	if c.Name != "token" || c.Value != "jwt" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie flags = httpOnly:%v secure:%v sameSite:%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != 36000 || c.Path != "/" || c.Domain != "writewise.example" {
		t.Errorf("cookie maxAge=%d path=%q domain=%q", c.MaxAge, c.Path, c.Domain)
	}

	cleared := ClearSessionCookie(cfg)
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Errorf("cleared cookie maxAge=%d value=%q", cleared.MaxAge, cleared.Value)
	}
	if !cleared.HttpOnly || !cleared.Secure || cleared.SameSite != http.SameSiteStrictMode || cleared.Domain != c.Domain {
		t.Error("cleared cookie must carry the same attributes as the issued cookie")
	}
}

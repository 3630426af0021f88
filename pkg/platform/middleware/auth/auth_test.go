package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"aip/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func serve(v JWTValidator, header string) (*httptest.ResponseRecorder, requestcontext.Principal) {
	var got requestcontext.Principal
	h := RequireAuth(v, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Actor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	r := httptest.NewRequest(http.MethodGet, "/verifications", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w, got
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	t.Run("missing header", func(t *testing.T) {
		w, _ := serve(stubValidator{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Missing or invalid Authorization header")
	})

	t.Run("invalid token", func(t *testing.T) {
		w, _ := serve(stubValidator{err: errors.New("bad signature")}, "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("malformed user id claim", func(t *testing.T) {
		w, _ := serve(stubValidator{claims: &JWTClaims{UserID: "nope", Role: "verifier"}}, "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token sets actor", func(t *testing.T) {
		w, actor := serve(stubValidator{claims: &JWTClaims{UserID: userID.String(), OrgID: orgID.String(), Role: "sponsor"}}, "Bearer abc")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, userID.String(), actor.UserID.String())
		assert.Equal(t, orgID.String(), actor.OrgID.String())
		assert.Equal(t, "sponsor", actor.Role)
	})
}

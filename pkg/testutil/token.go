package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"aip/pkg/requestcontext"
)

// MintToken signs an HS256 access token for p, shaped like the identity
// service's tokens.
func MintToken(t *testing.T, signingKey, issuer string, p requestcontext.Principal) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": p.UserID.String(),
		"role":    p.Role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	if !p.OrgID.IsNil() {
		claims["org_id"] = p.OrgID.String()
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err, "failed to sign token")
	return token
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "aip/pkg/domain"
	"aip/pkg/requestcontext"
)

// NewPrincipal returns a caller with fresh user and org IDs.
func NewPrincipal(role string) requestcontext.Principal {
	return requestcontext.Principal{
		UserID: id.UserID(uuid.New()),
		OrgID:  id.OrgID(uuid.New()),
		Role:   role,
	}
}

// WithActor stores p on the request the way the auth middleware does, for
// tests that call handlers without a token.
func WithActor(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), p))
}

// WithRequestID sets the correlation ID normally assigned by middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

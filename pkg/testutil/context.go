package testutil

import (
	"net/http"

	id "trustgate/pkg/domain"
	"trustgate/pkg/requestcontext"
)

// WithAccount adds an authenticated account and its roles to the request
// context, the way the auth middleware does for a verified bearer token.
// If accountID is not a valid UUID, the request is returned unchanged.
func WithAccount(req *http.Request, accountID string, roles ...string) *http.Request {
	parsed, err := id.ParseAccountID(accountID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithAccountID(req.Context(), parsed)
	ctx = requestcontext.WithRoles(ctx, roles)
	return req.WithContext(ctx)
}

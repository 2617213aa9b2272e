package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/platform/httputil"
)

func TestAssertErrorReadsEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	rr := DoRequest(handler, NewRequest(t, http.MethodGet, "/"))
	AssertError(t, rr, http.StatusUnauthorized, dErrors.CodeUnauthorized)
	assert.Equal(t, "authentication required", UnmarshalResponse[ErrorBody](t, rr).Description,
		"the body can be decoded more than once")

	rr = DoRequest(handler, WithBearer(NewJSONRequest(t, http.MethodGet, "/", nil), "token-1"))
	AssertStatusOK(t, rr)
	AssertJSONContains(t, rr, "status", "ok")
}

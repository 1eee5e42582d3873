package shared

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"staffledger/internal/transport/http/api"
)

// PathID reads a UUID route parameter, failing the request when it is
// malformed.
func PathID(w http.ResponseWriter, r *http.Request, name, requestID string) (string, bool) {
	raw := chi.URLParam(r, name)
	parsed, err := uuid.Parse(raw)
	if err != nil {
		FailValidation(w, requestID, []ValidationIssue{{Field: name, Reason: "must be a valid id"}})
		return "", false
	}
	return parsed.String(), true
}

// Decode reads the JSON body or fails the request.
func Decode(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	err := api.Decode(r, dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, api.ErrBodyTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	}
	return false
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chrono-hq/reaper/pkg/promstore"
	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondErrorString(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondError maps a domain error onto an HTTP status:
//
//	validation, duplicate pattern  -> 400
//	not found                      -> 404
//	disabled, already executing    -> 409
//	remote store errors            -> 502
//	storage and everything else    -> 500
func respondError(w http.ResponseWriter, err error) {
	var (
		validationErr *retention.ValidationError
		duplicateErr  *retention.DuplicatePatternError
		notFoundErr   *retention.NotFoundError
		disabledErr   *retention.DisabledPolicyError
		inProgressErr *retention.ExecutionInProgressError
		statusErr     *promstore.StatusError
		transportErr  *promstore.TransportError
		timeoutErr    *promstore.TimeoutError
		storageErr    *store.StorageError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &duplicateErr):
		respondErrorString(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		respondErrorString(w, http.StatusNotFound, err.Error())
	case errors.As(err, &disabledErr), errors.As(err, &inProgressErr):
		respondErrorString(w, http.StatusConflict, err.Error())
	case errors.As(err, &statusErr), errors.As(err, &transportErr), errors.As(err, &timeoutErr):
		respondErrorString(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &storageErr):
		slog.Error("storage error", "error", err)
		respondErrorString(w, http.StatusInternalServerError, "storage error")
	default:
		slog.Error("unhandled error", "error", err)
		respondErrorString(w, http.StatusInternalServerError, "internal server error")
	}
}

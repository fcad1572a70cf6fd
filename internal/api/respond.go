package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/bft-labs/escapetime/internal/domain"
)

// problem is the body of every error response.
type problem struct {
	Status string `json:"status"`
	Detail any    `json:"detail"`
}

func problemFor(err error) (int, problem) {
	if fields, ok := fieldsOf(err); ok {
		return http.StatusUnprocessableEntity, problem{Status: "error", Detail: fields}
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, problem{Status: "error", Detail: "request body too large"}
	case errors.Is(err, errMalformed):
		return http.StatusBadRequest, problem{Status: "error", Detail: err.Error()}
	case errors.Is(err, domain.ErrComputeTimeout):
		return http.StatusServiceUnavailable, problem{Status: "error", Detail: "computation timed out"}
	default:
		return http.StatusInternalServerError, problem{Status: "error", Detail: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

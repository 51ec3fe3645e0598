package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/validation"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Message: message})
}

// respondFailure maps a store error to a status and client message. Details
// of unexpected errors are logged, never returned.
func respondFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
			Message: "Validation failed",
			Errors:  verr.Fields,
		})
		return
	}

	status := mapErrorToStatusCode(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		respondError(w, r, status, fallback)
		return
	}
	respondError(w, r, status, clientMessage(err))
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, database.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrProposalNotFound),
		errors.Is(err, database.ErrVoucherNotFound),
		errors.Is(err, database.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, database.ErrNoOrderableItems),
		errors.Is(err, database.ErrVoucherUsed),
		errors.Is(err, database.ErrVoucherExpired),
		errors.Is(err, database.ErrVoucherInactive),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, store.ErrInvalidCursor):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, database.ErrVoucherNotFound):
		return "Voucher not found"
	case errors.Is(err, database.ErrVoucherUsed):
		return "This voucher has already been used"
	case errors.Is(err, database.ErrVoucherExpired):
		return "This voucher has expired"
	case errors.Is(err, database.ErrVoucherInactive):
		return "This voucher is no longer active"
	case errors.Is(err, database.ErrNoOrderableItems):
		return "None of the requested items could be ordered"
	case errors.Is(err, store.ErrInvalidCursor):
		return "Invalid cursor"
	}

	var notFound = []error{
		database.ErrOrderNotFound,
		database.ErrProductNotFound,
		database.ErrProposalNotFound,
		database.ErrUserNotFound,
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return capitalize(target.Error())
		}
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, true)
}

// decodeLenientJSON ignores fields the request type does not declare.
func decodeLenientJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def
// when it is absent, malformed or above max.
func queryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 || v > max {
		return def
	}
	return v
}

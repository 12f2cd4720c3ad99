package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/cardledger/internal/adapter/http/dto"
	"github.com/iho/cardledger/internal/adapter/http/middleware"
	"github.com/iho/cardledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with an explicit status.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError classifies err and writes the matching response. Storage
// faults are logged here and returned without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, dto.ErrorFromDomain(err))
}

// mapDomainError maps error kinds to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindCardNotFound, domain.KindTransactionNotFound:
		return http.StatusNotFound
	case domain.KindCardNotActive, domain.KindInvalidTransition, domain.KindConcurrencyConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return false
	}

	return true
}

// requireOwner returns the owner resolved by the auth middleware.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no owner resolved for request")
		return "", false
	}

	return owner, true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// transactionFilter reads the status and type filters shared by the
// transaction listings.
func transactionFilter(r *http.Request, ownerID string) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		OwnerID: ownerID,
		CardID:  q.Get("card_id"),
		Limit:   parseIntQuery(r, "limit", 20),
		Offset:  parseIntQuery(r, "offset", 0),
	}

	if s := q.Get("status"); s != "" {
		status, err := domain.ParseTransactionStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}

	if s := q.Get("type"); s != "" {
		txType, err := domain.ParseTransactionType(s)
		if err != nil {
			return filter, err
		}
		filter.Type = txType
	}

	return filter, nil
}

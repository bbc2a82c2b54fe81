// Package handler provides the HTTP handlers of the coinchat API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"coinchat/internal/progression"
	"coinchat/internal/service"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteErrorCode writes the error envelope with an explicit status and code.
func WriteErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// WriteError maps err to a status and code and writes the error envelope.
// Store failures are logged and reported without their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteErrorCode(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	case errors.Is(err, service.ErrInvalidToken):
		WriteErrorCode(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		return
	case errors.Is(err, service.ErrForbidden):
		WriteErrorCode(w, http.StatusForbidden, "forbidden", err.Error())
		return
	case errors.Is(err, service.ErrUsernameTaken):
		WriteErrorCode(w, http.StatusConflict, "conflict", err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		WriteErrorCode(w, http.StatusServiceUnavailable, "timeout", "request timed out")
		return
	}

	kind := progression.KindOf(err)
	switch kind {
	case progression.KindNotFound:
		WriteErrorCode(w, http.StatusNotFound, kind.String(), err.Error())
	case progression.KindInvalidInput:
		WriteErrorCode(w, http.StatusBadRequest, kind.String(), err.Error())
	case progression.KindInsufficientBalance:
		WriteErrorCode(w, http.StatusPaymentRequired, kind.String(), err.Error())
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		WriteErrorCode(w, http.StatusInternalServerError, progression.KindStoreFailure.String(), "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return progression.Invalidf("malformed request body: %v", err)
	}
	return nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, progression.Invalidf("%s must be an integer", name)
	}
	return v, nil
}

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFrom returns the authenticated user ID, if any.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// resolveUserID picks the acting user from the request. A verified token
// fills a missing userId and must agree with a supplied one.
func resolveUserID(r *http.Request, supplied int64) (int64, error) {
	tokenID, ok := UserIDFrom(r.Context())
	switch {
	case ok && supplied == 0:
		return tokenID, nil
	case ok && supplied != tokenID:
		return 0, service.ErrForbidden
	case supplied <= 0:
		return 0, progression.Invalidf("userId is required")
	}
	return supplied, nil
}

func queryUserID(r *http.Request) (int64, error) {
	id, err := queryInt64(r, "userId")
	if err != nil {
		return 0, err
	}
	return resolveUserID(r, id)
}

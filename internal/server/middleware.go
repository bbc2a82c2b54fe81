package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"coinchat/internal/handler"
	"coinchat/internal/service"
)

// requestLogger logs every request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// recoverer turns a panic into a 500 and logs it.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")
				handler.WriteErrorCode(w, http.StatusInternalServerError, "store_failure", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// cors allows the configured origins. "*" allows any origin.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(o)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[strings.ToLower(origin)]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// authenticate stores the user ID of a valid bearer token in the request
// context. Requests without a token pass through; a bad token is rejected.
func authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				handler.WriteError(w, r, service.ErrInvalidToken)
				return
			}
			userID, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				handler.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(handler.WithUserID(r.Context(), userID)))
		})
	}
}

// AdminAuthorizer decides whether an ID may use admin routes.
type AdminAuthorizer interface {
	Authorize(ctx context.Context, adminID int64) error
}

// requireAdmin reads adminId from the query string or the JSON body and
// rejects the request unless it is authorized. The body is restored for
// the next handler.
func requireAdmin(admins AdminAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, err := peekAdminID(r)
			if err != nil {
				handler.WriteError(w, r, service.ErrForbidden)
				return
			}
			if err := admins.Authorize(r.Context(), adminID); err != nil {
				handler.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(handler.WithAdminID(r.Context(), adminID)))
		})
	}
}

func peekAdminID(r *http.Request) (int64, error) {
	if raw := r.URL.Query().Get("adminId"); raw != "" {
		return strconv.ParseInt(raw, 10, 64)
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return 0, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var peek struct {
		AdminID int64 `json:"adminId"`
	}
	if len(body) == 0 {
		return 0, nil
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return 0, err
	}
	return peek.AdminID, nil
}

package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/catalog"
	"github.com/ssargent/catbuf/pkg/codec"
	"github.com/ssargent/catbuf/pkg/logging"
	"github.com/ssargent/catbuf/pkg/storage"
)

// apiKeyMiddleware validates the X-API-Key header. An empty expected key
// disables the check.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs each request through the process logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	sendJSON(w, http.StatusOK, data)
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendFailure maps err onto a status code and writes it. Codec errors carry
// their structured detail.
func sendFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	response := APIResponse{Success: false, Error: err.Error()}

	var ce *codec.Error
	if errors.As(err, &ce) {
		response.Detail = &ErrorInfo{
			Kind:   errorKind(ce.Err),
			Path:   ce.FieldPath(),
			Offset: ce.Offset,
			Want:   ce.Want,
			Got:    ce.Got,
		}
		if errors.Is(ce.Err, codec.ErrUnknownEnumValue) {
			response.Detail.Raw = fmt.Sprintf("0x%X", ce.Raw)
		}
	}
	if status >= http.StatusInternalServerError {
		logging.L().Error("request failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownSchema), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrTruncatedInput),
		errors.Is(err, codec.ErrSizeMismatch),
		errors.Is(err, codec.ErrUnknownEnumValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, builder.ErrUnknownField),
		errors.Is(err, builder.ErrReadOnlyField),
		errors.Is(err, builder.ErrConditionNotMet),
		errors.Is(err, builder.ErrTypeMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, codec.ErrTruncatedInput):
		return "truncated_input"
	case errors.Is(err, codec.ErrSizeMismatch):
		return "size_mismatch"
	case errors.Is(err, codec.ErrUnknownEnumValue):
		return "unknown_enum_value"
	}
	return "invalid"
}

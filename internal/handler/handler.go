// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/billtrack/billtrack/internal/handler/dto"
	"github.com/billtrack/billtrack/internal/middleware"
	"github.com/billtrack/billtrack/internal/service"
)

// Error codes.
const (
	CodeInvalidJSON       = "INVALID_JSON"
	CodeInvalidBill       = "INVALID_BILL"
	CodeEmptyPatch        = "EMPTY_PATCH"
	CodeCannotUnpay       = "CANNOT_UNPAY"
	CodeInvalidPagination = "INVALID_PAGINATION"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeInvalidUserType   = "INVALID_USER_TYPE"
	CodeBillNotFound      = "BILL_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeInternal          = "INTERNAL_ERROR"
)

// NotFound handles 404 responses for unmatched routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON decodes a single JSON object, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// pathParam returns the decoded URL parameter. chi matches on RawPath when
// the request carries one, so only then is the value still escaped.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrBillNotFound):
		writeError(w, http.StatusNotFound, CodeBillNotFound, "Bill not found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeUserNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidBill):
		writeError(w, http.StatusBadRequest, CodeInvalidBill, err.Error())
	case errors.Is(err, service.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, CodeEmptyPatch, err.Error())
	case errors.Is(err, service.ErrCannotUnpay):
		writeError(w, http.StatusConflict, CodeCannotUnpay, err.Error())
	case errors.Is(err, service.ErrInvalidPagination):
		writeError(w, http.StatusBadRequest, CodeInvalidPagination, err.Error())
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, CodeInvalidEmail, err.Error())
	case errors.Is(err, service.ErrInvalidUserType):
		writeError(w, http.StatusBadRequest, CodeInvalidUserType, err.Error())
	default:
		logger.Error("request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

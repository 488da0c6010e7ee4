// Package httputil holds the JSON request and response helpers shared by
// handlers and middleware.
package httputil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 1 << 20

// WriteJSON writes data with status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteError classifies err, logs it with request metadata, and writes the
// client-safe message. 5xx bodies never carry the underlying error text.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	se := apperrors.FromError(err)
	if log != nil {
		entry := log.WithContext(r.Context()).WithError(err).WithField("method", r.Method).
			WithField("path", r.URL.Path).WithField("status", se.HTTPStatus)
		if se.HTTPStatus >= http.StatusInternalServerError {
			entry.WithField("client_ip", ClientIP(r)).WithField("user_agent", r.UserAgent()).Error("request failed")
		} else {
			entry.Debug("request rejected")
		}
	}
	Error(w, se.HTTPStatus, se.Message)
}

// DecodeJSON reads a bounded JSON body into dst. Malformed bodies are
// validation errors.
func DecodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperrors.NewValidationError("body", "request body is required")
		}
		return apperrors.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// ClientIP returns the first X-Forwarded-For hop, else X-Real-Ip, else the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package response writes the JSON envelope every API procedure answers with:
//
//	{"status":200,"data":...}
//	{"status":403,"code":"FORBIDDEN","message":"Admin access required"}
package response

import (
	"encoding/json"
	"net/http"

	"github.com/humanebio/storefront/pkg/apperr"
)

// Envelope is the wire shape of every response.
type Envelope struct {
	Status  int         `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: data})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Status: status, Code: codeFor(status), Message: message})
}

// ValidationError sends a 400 BAD_REQUEST with a field-level error map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusBadRequest, Envelope{
		Status:  http.StatusBadRequest,
		Code:    apperr.BadRequest.String(),
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Fail translates a service error into its HTTP status and envelope.
// Internal failures never leak their cause to the caller.
func Fail(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)

	msg := apperr.MessageOf(err)
	if msg == "" || kind == apperr.Internal {
		msg = http.StatusText(status)
	}
	Write(w, status, Envelope{Status: status, Code: kind.String(), Message: msg})
}

// StatusOf maps a failure kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.BadRequest:
		return http.StatusBadRequest
	case apperr.PersistenceUnavailable:
		return http.StatusServiceUnavailable
	case apperr.PaymentProvider, apperr.LLMProvider, apperr.StorageProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Please login")
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Admin access required")
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

func codeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return apperr.Unauthorized.String()
	case http.StatusForbidden:
		return apperr.Forbidden.String()
	case http.StatusNotFound:
		return apperr.NotFound.String()
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return apperr.BadRequest.String()
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusServiceUnavailable:
		return apperr.PersistenceUnavailable.String()
	}
	if status >= 500 {
		return apperr.Internal.String()
	}
	return ""
}

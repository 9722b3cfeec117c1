package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"solde/internal/auth"
	"solde/internal/core"
	applog "solde/internal/log"
	"solde/internal/store"
)

// JSONResponse is a small fluent builder for JSON replies.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponse {
	return &JSONResponse{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(key, value string) *JSONResponse {
	b.headers[key] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Send writes headers, status and the encoded body. A nil body sends no
// content.
func (b *JSONResponse) Send(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Send(w)
}

// Error codes returned in the "error" field.
const (
	codeSchemaInvalid      = "schema_invalid"
	codeValidationFailed   = "validation_failed"
	codeMalformedBody      = "malformed_body"
	codeNotLoggedIn        = "not_logged_in"
	codeInvalidCredentials = "invalid_credentials"
	codeEmailTaken         = "email_taken"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeRateLimited        = "rate_limited"
	codeInternal           = "internal_error"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Field   string            `json:"field,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details []string          `json:"details,omitempty"`
}

// errorResponse maps a service error onto a status and body. Unknown errors
// become a 500 without leaking their text.
func errorResponse(err error) (int, errorBody) {
	var (
		schemaErr *SchemaError
		formErr   *auth.FormError
		validErr  *core.ValidationError
	)
	switch {
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, errorBody{Error: codeSchemaInvalid, Details: schemaErr.Details}
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, errorBody{Error: codeMalformedBody, Message: err.Error()}
	case errors.As(err, &formErr):
		return http.StatusUnprocessableEntity, errorBody{Error: codeValidationFailed, Fields: formErr.Fields}
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity, errorBody{Error: codeValidationFailed, Field: validErr.Field, Message: validErr.Err.Error()}
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Error: codeNotLoggedIn}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Error: codeInvalidCredentials}
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, errorBody{Error: codeEmailTaken}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: codeNotFound}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, errorBody{Error: codeConflict}
	default:
		return http.StatusInternalServerError, errorBody{Error: codeInternal}
	}
}

// writeError logs server-side failures and sends the mapped error body.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, op, applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
	}
	writeJSON(w, status, body)
}

// writeDegradedList answers a failed list read with 200, an empty list and
// an error line so clients keep rendering.
func writeDegradedList(w http.ResponseWriter, r *http.Request, key string, err error) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).WarnContext(r.Context(), "List degraded to empty",
		applog.FieldPath, r.URL.Path,
		applog.FieldError, err)
	writeJSON(w, http.StatusOK, map[string]any{
		key:     []struct{}{},
		"error": "could not load " + key,
	})
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

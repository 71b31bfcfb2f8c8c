package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mkrupp/fintrack/internal/domain"
)

// MaxJSONBodySize bounds request bodies read by DecodeJSON.
const MaxJSONBodySize = 1 << 20

// ErrBadRequest is returned when a request body or parameter cannot be decoded.
var ErrBadRequest = errors.New("bad request")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorCode struct {
	err    error
	status int
	code   string
}

// errorCodes maps sentinel errors to statuses and wire codes. The first match wins.
//
//nolint:gochecknoglobals
var errorCodes = []errorCode{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token"},
	{domain.ErrInvalidAuthToken, http.StatusUnauthorized, "invalid_token"},
	{domain.ErrNoAuthToken, http.StatusUnauthorized, "no_token"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrUserAlreadyExists, http.StatusConflict, "user_already_exists"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrNoAvatar, http.StatusNotFound, "no_avatar"},
	{domain.ErrBlobNotFound, http.StatusNotFound, "blob_not_found"},
	{domain.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{domain.ErrNoEmail, http.StatusBadRequest, "no_email"},
	{domain.ErrInvalidRecord, http.StatusBadRequest, "invalid_record"},
	{domain.ErrNoRecordID, http.StatusBadRequest, "no_record_id"},
	{domain.ErrInvalidRecoveryLink, http.StatusBadRequest, "invalid_recovery_link"},
	{domain.ErrAvatarTypeNotSupported, http.StatusUnsupportedMediaType, "avatar_type_not_supported"},
	{domain.ErrAvatarTypeMismatch, http.StatusUnsupportedMediaType, "avatar_type_mismatch"},
	{domain.ErrAvatarTooLarge, http.StatusRequestEntityTooLarge, "avatar_too_large"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
}

// StatusFromError returns the HTTP status and wire code for err.
// Unknown errors map to 500.
func StatusFromError(err error) (int, string) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.status, ec.code
		}
	}

	return http.StatusInternalServerError, "internal_error"
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return nil
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// WriteError writes err as an ErrorResponse. Messages of server errors are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusFromError(err)

	message := http.StatusText(status)
	if status < http.StatusInternalServerError {
		message = strings.ReplaceAll(err.Error(), "\n", ": ")
	}

	_ = WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// DecodeJSON decodes a JSON request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}

	return nil
}

// APIError is an error response received from another service.
// It unwraps to the sentinel named by its code, so errors.Is works across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return http.StatusText(e.Status)
}

func (e *APIError) Unwrap() error {
	for _, ec := range errorCodes {
		if ec.code == e.Code {
			return ec.err
		}
	}

	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// ErrorFromResponse reads an error response. It returns nil for 2xx responses.
func ErrorFromResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body ErrorResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxJSONBodySize)).Decode(&body); err != nil {
		body = ErrorResponse{Error: "", Message: ""}
	}

	return &APIError{Status: resp.StatusCode, Code: body.Error, Message: body.Message}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errorsmod "cosmossdk.io/errors"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/token"
)

// Codespace of errors raised by the API layer itself.
const Codespace = "api"

// API errors
var (
	ErrBadRequest  = errorsmod.Register(Codespace, 2, "bad request")
	ErrNotFound    = errorsmod.Register(Codespace, 3, "not found")
	ErrUnsigned    = errorsmod.Register(Codespace, 4, "missing request signature")
	ErrRateLimited = errorsmod.Register(Codespace, 5, "rate limit exceeded")
	ErrUnknownOp   = errorsmod.Register(Codespace, 6, "unknown operation")
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

// HTTPError attaches an explicit status to cause.
func HTTPError(cause error, status int) error {
	return &httpError{cause: cause, status: status}
}

// BadRequest wraps cause as a 400.
func BadRequest(cause error) error {
	return &httpError{cause: errorsmod.Wrap(ErrBadRequest, cause.Error()), status: http.StatusBadRequest}
}

// HandlerFunc is an http.HandlerFunc that returns an error.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc converts f into an http.HandlerFunc that renders returned
// errors as ErrorResponse.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(w, err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	codespace, code := codeOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && codespace == errorsmod.UndefinedCodespace {
		msg = "internal error"
	}
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: code, Codespace: codespace, Error: msg})
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	switch {
	case errors.Is(err, registry.ErrOracleNotFound),
		errors.Is(err, token.ErrUnknownToken),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsigned),
		errors.Is(err, signing.ErrInvalidSignature),
		errors.Is(err, signing.ErrInvalidSigner),
		errors.Is(err, signing.ErrStaleNonce):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case oracle.IsAuthorizationError(err):
		return http.StatusForbidden
	case oracle.IsInputError(err),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrUnknownOp):
		return http.StatusBadRequest
	case oracle.IsExternalError(err):
		return http.StatusBadGateway
	case errors.Is(err, registry.ErrOracleExists):
		return http.StatusConflict
	}
	if codespace, _ := codeOf(err); codespace == oracle.Codespace {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// codeOf finds the registered error in err's chain.
func codeOf(err error) (string, uint32) {
	var coded *errorsmod.Error
	if errors.As(err, &coded) {
		return coded.Codespace(), coded.ABCICode()
	}
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	return codespace, code
}

// JSONContentType is the content type of every JSON response.
const JSONContentType = "application/json; charset=utf-8"

// ParseJSON decodes r in strict mode.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON responds with obj.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// writeJSONStatus responds with obj and an explicit status.
func writeJSONStatus(w http.ResponseWriter, status int, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(obj)
}

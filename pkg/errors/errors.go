package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeParsing        ErrorType = "parsing"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Setup-phase failures that abort an operation before any write.
var (
	ErrNotAuthenticated = stderrors.New("not authenticated")
	ErrRunInProgress    = stderrors.New("a bulk operation is already running")
	ErrListCreate       = stderrors.New("list creation failed")
)

// Error represents an API error with type information. XRPC is the
// error name from the response body, e.g. "ExpiredToken".
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	XRPC    string
	// ResetAt is set for rate limit errors when the server reports it
	ResetAt time.Time
}

func (e *Error) Error() string {
	if e.XRPC != "" {
		return fmt.Sprintf("%s error (code %d, %s): %s", e.Type, e.Code, e.XRPC, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Retryable reports whether the request that produced e may be retried
func (e *Error) Retryable() bool {
	return IsRetryable(e.Type)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err does
// not wrap an *Error.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// xrpcBody is the error envelope returned by XRPC endpoints.
type xrpcBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FromResponse classifies a non-2xx XRPC response. The body is inspected
// for the {error, message} envelope; header supplies ratelimit-reset.
func FromResponse(statusCode int, body []byte, header http.Header) *Error {
	var env xrpcBody
	_ = json.Unmarshal(body, &env)

	e := &Error{
		Code:    statusCode,
		XRPC:    env.Error,
		Message: env.Message,
		Type:    classify(statusCode, env.Error),
	}
	if e.Message == "" {
		e.Message = http.StatusText(statusCode)
	}
	if e.Type == ErrorTypeRateLimit && header != nil {
		e.ResetAt = ParseRateLimitReset(header.Get("ratelimit-reset"))
	}
	return e
}

func classify(statusCode int, name string) ErrorType {
	switch name {
	case "ExpiredToken", "InvalidToken", "AuthenticationRequired", "AuthFactorTokenRequired", "AccountTakedown":
		return ErrorTypeAuth
	case "RateLimitExceeded":
		return ErrorTypeRateLimit
	case "RecordNotFound", "ProfileNotFound", "ActorNotFound", "RepoNotFound":
		return ErrorTypeNotFound
	case "InvalidRequest", "InvalidSwap":
		return ErrorTypeInvalidRequest
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeInvalidRequest
	default:
		return ErrorTypeUnknown
	}
}

// ParseRateLimitReset parses the ratelimit-reset unix timestamp header.
// Returns the zero time if the header is missing or invalid.
func ParseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

// Network wraps a transport failure
func Network(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: err.Error()}
}

// Parsing wraps a response decoding failure
func Parsing(err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: err.Error()}
}

package knora

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCode represents a specific error type for client-side handling
type ErrorCode string

const (
	// ErrorCodeNone indicates no error
	ErrorCodeNone ErrorCode = ""

	// ErrorCodeLoginFailed indicates the registry or asset store rejected the login handshake
	ErrorCodeLoginFailed ErrorCode = "LOGIN_FAILED"

	// ErrorCodeThumbnailFailed indicates the asset store could not produce a thumbnail
	ErrorCodeThumbnailFailed ErrorCode = "THUMBNAIL_FAILED"

	// ErrorCodeConfiguration indicates an unknown target or invalid settings
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrorCodeNoResult indicates a registry call produced no usable result
	ErrorCodeNoResult ErrorCode = "NO_RESULT"

	// ErrorCodeNotLoggedIn indicates a registry call was attempted without a session
	ErrorCodeNotLoggedIn ErrorCode = "NOT_LOGGED_IN"

	// ErrorCodeMalformedResponse indicates a 2xx response whose body lacks an expected field
	ErrorCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// Transport causes, used for log context only.
	ErrorCodeTimeout           ErrorCode = "TIMEOUT"
	ErrorCodeDNS               ErrorCode = "DNS_ERROR"
	ErrorCodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"
	ErrorCodeUnknown           ErrorCode = "UNKNOWN"
)

// Service names one of the two cooperating HTTP services.
type Service string

const (
	ServiceRegistry   Service = "registry"
	ServiceAssetStore Service = "assetstore"
)

// ErrNoResult is wrapped by every CreateResource/Get failure. Callers check it
// with errors.Is instead of comparing against an empty value.
var ErrNoResult = errors.New("no result")

// ErrStatsNotStarted is returned by ExecStats.End without a pending Start.
var ErrStatsNotStarted = errors.New("exec stats: end called without start")

// ClientError represents a structured error with classification
type ClientError struct {
	Code       ErrorCode
	Service    Service
	Message    string
	StatusCode int
	Err        error
	// Permanent is false only for the kinds the retry policy may retry
	Permanent bool
}

func (e *ClientError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Service != "" {
		b.WriteString("[" + string(e.Service) + "]")
	}
	b.WriteString(": " + e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is matches ErrNoResult for the registry failures that degrade to an absent result.
func (e *ClientError) Is(target error) bool {
	if target != ErrNoResult || e.Service != ServiceRegistry {
		return false
	}
	switch e.Code {
	case ErrorCodeNoResult, ErrorCodeMalformedResponse, ErrorCodeNotLoggedIn:
		return true
	}
	return false
}

// IsPermanent returns true if retrying cannot help
func (e *ClientError) IsPermanent() bool {
	return e.Permanent
}

// NewClientError creates a new ClientError
func NewClientError(code ErrorCode, message string, err error, permanent bool) *ClientError {
	return &ClientError{
		Code:      code,
		Message:   message,
		Err:       err,
		Permanent: permanent,
	}
}

func loginFailed(service Service, status int, err error) *ClientError {
	return &ClientError{
		Code:       ErrorCodeLoginFailed,
		Service:    service,
		Message:    fmt.Sprintf("%s login failed", service),
		StatusCode: status,
		Err:        err,
	}
}

func thumbnailFailed(status int, err error) *ClientError {
	return &ClientError{
		Code:       ErrorCodeThumbnailFailed,
		Service:    ServiceAssetStore,
		Message:    "thumbnail failed",
		StatusCode: status,
		Err:        err,
	}
}

func noResult(operation string, status int, err error) *ClientError {
	return &ClientError{
		Code:       ErrorCodeNoResult,
		Service:    ServiceRegistry,
		Message:    operation + " returned no result",
		StatusCode: status,
		Err:        err,
		Permanent:  true,
	}
}

func malformedResponse(service Service, field string, err error) *ClientError {
	msg := "response body is not a JSON object"
	if field != "" {
		msg = fmt.Sprintf("response has no %q field", field)
	}
	return &ClientError{
		Code:      ErrorCodeMalformedResponse,
		Service:   service,
		Message:   msg,
		Err:       err,
		Permanent: true,
	}
}

func notLoggedIn() *ClientError {
	return &ClientError{
		Code:      ErrorCodeNotLoggedIn,
		Service:   ServiceRegistry,
		Message:   "no registry session, call Login first",
		Permanent: true,
	}
}

// ConfigurationError reports an unknown target name or invalid setting.
func ConfigurationError(format string, args ...any) *ClientError {
	return &ClientError{
		Code:      ErrorCodeConfiguration,
		Message:   fmt.Sprintf(format, args...),
		Permanent: true,
	}
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Code
	}

	return ErrorCodeUnknown
}

func hasCode(err error, code ErrorCode) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Code == code
}

// IsLoginFailed reports whether err is a LOGIN_FAILED error for any service.
func IsLoginFailed(err error) bool {
	return hasCode(err, ErrorCodeLoginFailed)
}

// IsThumbnailFailed reports whether err is a THUMBNAIL_FAILED error.
func IsThumbnailFailed(err error) bool {
	return hasCode(err, ErrorCodeThumbnailFailed)
}

// IsNoResult reports whether a registry call degraded to an absent result.
func IsNoResult(err error) bool {
	return errors.Is(err, ErrNoResult)
}

// FailedService returns the service a LOGIN_FAILED error refers to.
func FailedService(err error) Service {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Service
	}
	return ""
}

// IsRecoverable is the retry predicate: only login and thumbnail failures are retried.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return !clientErr.IsPermanent() &&
		(clientErr.Code == ErrorCodeLoginFailed || clientErr.Code == ErrorCodeThumbnailFailed)
}

// ClassifyCause names the transport-level cause of err for log context.
func ClassifyCause(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorCodeDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrorCodeTimeout
		}
		if opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
			return ErrorCodeConnectionRefused
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ErrorCodeTimeout
	}

	lowerErr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErr, "timeout"), strings.Contains(lowerErr, "deadline exceeded"):
		return ErrorCodeTimeout
	case strings.Contains(lowerErr, "connection refused"):
		return ErrorCodeConnectionRefused
	case strings.Contains(lowerErr, "no such host"):
		return ErrorCodeDNS
	}

	return ErrorCodeUnknown
}

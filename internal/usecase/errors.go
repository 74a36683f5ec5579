package usecase

import "fmt"

type ErrorCode string

const (
	ErrorMessageRequired ErrorCode = "MESSAGE_REQUIRED"
	ErrorMissingConfig   ErrorCode = "MISSING_CONFIG"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorQuotaExhausted  ErrorCode = "QUOTA_EXHAUSTED"
	ErrorUnavailable     ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorNetwork         ErrorCode = "NETWORK_ERROR"
	ErrorProcessing      ErrorCode = "PROCESSING_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"

	ErrorInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrorInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
)

// Error is the typed failure returned by the use cases. Reason is a short
// machine tag for logs; Details is safe to show to clients.
type Error struct {
	Code    ErrorCode
	Reason  string
	Details string
	Failure *ProviderFailure
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

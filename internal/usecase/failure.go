package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	maxLoggedMessage = 200
	maxLoggedBody    = 500
	redacted         = "[REDACTED]"
)

// sensitiveKeyFragments mark JSON keys whose values never reach a log.
var sensitiveKeyFragments = []string{"apikey", "api_key", "key", "token", "authorization", "auth", "password", "secret"}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type responseBodier interface {
	ResponseBody() string
}

// ProviderFailure is the normalized view of a provider error used for
// classification and operator logging.
type ProviderFailure struct {
	// StatusCode is the upstream HTTP status, 0 when none was received.
	StatusCode int
	// Message is the error text with the credential scrubbed.
	Message string
	// Network is set for transport failures and deadlines.
	Network bool
	// Body is the redacted, truncated upstream response body.
	Body string
	// ErrorType is the dynamic type of the provider error.
	ErrorType string
}

// Details returns the client-safe detail string for the failure.
func (f ProviderFailure) Details() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d", f.StatusCode)
	}
	return ""
}

// LogMessage returns Message truncated for the operator log.
func (f ProviderFailure) LogMessage() string {
	return truncate(f.Message, maxLoggedMessage)
}

// ExtractFailure builds a ProviderFailure from an arbitrary provider error.
// secret is scrubbed from every extracted string.
func ExtractFailure(err error, secret string) ProviderFailure {
	if err == nil {
		return ProviderFailure{}
	}
	f := ProviderFailure{
		Message:   scrub(err.Error(), secret),
		ErrorType: fmt.Sprintf("%T", err),
	}

	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		f.StatusCode = statusErr.HTTPStatusCode()
	}
	var bodyErr responseBodier
	if errors.As(err, &bodyErr) {
		f.Body = redactBody(scrub(bodyErr.ResponseBody(), secret))
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		f.Network = true
	}
	return f
}

// Classify maps a failure to an error code. Rules are evaluated in order and
// the first match wins; substring matching is a heuristic over provider text.
func Classify(f ProviderFailure) ErrorCode {
	msg := f.Message
	lower := strings.ToLower(msg)
	switch {
	case f.StatusCode == 429 || strings.Contains(msg, "429") || strings.Contains(lower, "rate limit"):
		return ErrorRateLimited
	case strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return ErrorQuotaExhausted
	case f.StatusCode == 401 || f.StatusCode == 403 ||
		strings.Contains(msg, "API key") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return ErrorUnavailable
	case f.Network || strings.Contains(lower, "network") || strings.Contains(lower, "timeout"):
		return ErrorNetwork
	default:
		return ErrorProcessing
	}
}

func classifyReason(code ErrorCode) string {
	switch code {
	case ErrorRateLimited:
		return "provider_rate_limited"
	case ErrorQuotaExhausted:
		return "provider_quota_exhausted"
	case ErrorUnavailable:
		return "provider_unauthorized"
	case ErrorNetwork:
		return "provider_network"
	default:
		return "provider_error"
	}
}

func redactBody(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return truncate(raw, maxLoggedBody)
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return ""
	}
	return truncate(string(out), maxLoggedBody)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSensitiveKey(k) {
				t[k] = redacted
				continue
			}
			t[k] = redactValue(val)
		}
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
	}
	return v
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func scrub(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, redacted)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrRetriesExhausted is returned after too many rate-limited attempts.
	ErrRetriesExhausted = errors.New("extraction retries exhausted")
	// ErrNoCredentials is returned when a Service is built without generators.
	ErrNoCredentials = errors.New("at least one AI credential is required")
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("model returned no content")
)

// IsRateLimit reports whether err means the active credential is throttled.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := asAPIError(err); ok {
		if apiErr.HTTPCode() == 429 {
			return true
		}
		if st := apiErr.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
			return true
		}
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}

// IsStructuredRejection reports whether a rate-limit error is a per-request
// quota rejection that needs no backoff before the next credential is tried.
// Errors carrying a RetryInfo delay are not: see RetryDelay.
func IsStructuredRejection(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		details := apiErr.Details()
		if details.RetryInfo != nil {
			return false
		}
		if details.QuotaFailure != nil {
			return true
		}
	}
	return strings.HasSuffix(strings.TrimSpace(err.Error()), "}]")
}

// RetryDelay returns the wait the server asked for through a RetryInfo detail.
func RetryDelay(err error) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}
	info := apiErr.Details().RetryInfo
	if info == nil || info.GetRetryDelay() == nil {
		return 0, false
	}
	delay := info.GetRetryDelay().AsDuration()
	if delay < 0 {
		return 0, false
	}
	return delay, true
}

func asAPIError(err error) (*apierror.APIError, bool) {
	if err == nil {
		return nil, false
	}
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return apierror.FromError(err)
}

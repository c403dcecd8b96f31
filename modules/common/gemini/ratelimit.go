package gemini

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// IsRateLimited - true when a remote call failed on quota or rate limits (HTTP 429)
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	// the SDK reports HTTP failures as APIError; trust its code when present
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Code == http.StatusTooManyRequests || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED")
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "error 429") ||
		strings.Contains(errStr, "429 too many requests") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "quota")
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// UpstreamStatus - HTTP status for a failed generation: 429 when the service
// is rate limiting us, 502 otherwise
func UpstreamStatus(err error) int {
	if IsRateLimited(err) {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

package llm

import (
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// IsRateLimit reports whether the error is a rate-limit rejection, which
// gets exponential backoff rather than the fixed transient wait.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}

package notion

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status     int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusBadRequest && e.Code == "validation_error"
}

func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

func (e *APIError) IsRetryable() bool {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status == http.StatusConflict:
		return true
	case e.Status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func IsValidationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsValidation()
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// MentionsProperty reports whether a validation error names the property.
// Notion quotes property names in its messages, e.g.
// "Content is not a property that exists.".
func MentionsProperty(err error, name string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsValidation() {
		return false
	}
	return strings.Contains(apiErr.Message, name)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

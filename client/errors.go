package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPError is returned for responses outside the 2xx range.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server-supplied message, or the status text.
	Message string
	Body    []byte
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    serverMessage(status, body),
		Body:       body,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("permit/client: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// ErrorMessage returns the message suitable for display.
func (e *HTTPError) ErrorMessage() string { return e.Message }

// serverMessage picks the first string among the message, error and
// detail fields of a JSON error body.
func serverMessage(status int, body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, k := range []string{"message", "error", "detail"} {
			if s, ok := fields[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

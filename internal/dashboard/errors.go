package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// statusError builds a StatusError, taking Detail from a FastAPI
// {"detail": "..."} body when there is one.
func statusError(method, path string, status int, body []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, StatusCode: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Detail) == 0 {
		return e
	}
	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		e.Detail = s
	} else {
		// Validation errors carry a list; keep it verbatim.
		e.Detail = string(payload.Detail)
	}
	return e
}

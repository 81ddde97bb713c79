package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("api: transport failure")

// Error is a non-2xx response. Detail carries the server's message.
type Error struct {
	Status int
	Detail string
	Body   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

// HasStatus reports whether err is an API error with the given status.
func HasStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Message returns the text a user should see for err.
func Message(err error) string {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.Is(err, ErrTransport):
		return "Unable to reach the budget service. Check your connection and try again."
	default:
		return err.Error()
	}
}

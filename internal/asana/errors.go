package asana

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorDetail struct {
	Message string `json:"message"`
	Help    string `json:"help,omitempty"`
	Phrase  string `json:"phrase,omitempty"`
}

// APIError is a response that carried an errors[] array.
type APIError struct {
	Status int
	Errors []ErrorDetail
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// Message is the first reported error message, which is what gets shown to the user.
func (e *APIError) Message() string {
	for _, d := range e.Errors {
		if m := strings.TrimSpace(d.Message); m != "" {
			return m
		}
	}
	return ""
}

// TransportError is a network or host failure: no usable envelope came back.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage returns the text to display inline for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return "Could not reach the server. Check your connection and try again."
	}
	return err.Error()
}

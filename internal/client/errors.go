package client

import (
	"fmt"
)

type ApiErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TransportError is returned when a completion stream cannot be opened or
// breaks before the remote side finishes it.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status code %d, message %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status code %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

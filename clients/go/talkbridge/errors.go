package talkbridge

import (
	"errors"
	"fmt"
)

// CommunicationError reports that a request never produced a usable
// server response: the transport failed or the body was not JSON.
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("talkbridge: %s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// APIError is a well-formed response with success set to false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("talkbridge: request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// IsCommunication reports whether err is a transport-level failure.
func IsCommunication(err error) bool {
	var ce *CommunicationError
	return errors.As(err, &ce)
}

// AsAPIError extracts an application-level failure from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

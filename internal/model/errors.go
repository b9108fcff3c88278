package model

import (
	"fmt"
	"net/http"
)

// ValidationError rejects a submission before any upstream call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServiceError reports a non-success response from an upstream service
type ServiceError struct {
	Service    string // "analysis" or "verification"
	StatusCode int    // 0 when the request never produced a response
	Message    string // user-facing, derived from the status
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s service: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s service (%d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError builds a ServiceError whose message follows the status code.
// upstream is used only for statuses without a fixed message.
func NewServiceError(service string, status int, upstream string, err error) *ServiceError {
	msg := upstream
	switch status {
	case http.StatusTooManyRequests:
		msg = "Rate limit exceeded. Please try again later."
	case http.StatusPaymentRequired:
		msg = "AI credits exhausted. Please add funds to continue."
	default:
		if msg == "" {
			if status == 0 {
				msg = fmt.Sprintf("%s service unreachable", service)
			} else {
				msg = fmt.Sprintf("%s service error (status %d)", service, status)
			}
		}
	}
	return &ServiceError{Service: service, StatusCode: status, Message: msg, Err: err}
}

// ParseError reports a successful upstream call whose payload could not be interpreted
type ParseError struct {
	Service string
	Raw     string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Service, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a durable storage failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

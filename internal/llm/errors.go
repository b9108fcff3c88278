package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/truthlens/internal/model"
)

// StatusError is returned when a provider answers with a non-2xx status
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error (%d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// errorMessage digs a human-readable message out of an error body.
// Providers disagree on shape: {"error":"..."}, {"error":{"message":"..."}}, {"detail":"..."}.
func errorMessage(body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if msg := payloadError(payload.Error); msg != "" {
		return msg
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}

// payloadError renders an "error" member that is either a string or an
// object with a message. Absent and null members yield "".
func payloadError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Type != "" {
			return obj.Type + " - " + obj.Message
		}
		return obj.Message
	}
	return ""
}

// ServiceError converts a provider failure into the user-facing error
// taxonomy. Failures without an HTTP status report status 0.
func ServiceError(service string, err error) *model.ServiceError {
	var se *StatusError
	if errors.As(err, &se) {
		return model.NewServiceError(service, se.StatusCode, se.Message, err)
	}
	return model.NewServiceError(service, 0, "", err)
}

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const defaultErrorMessage = "Unexpected error occurred"

// ErrEmptyPayload marks a successful response that carried no data. Callers
// treat it as the resource not existing.
var ErrEmptyPayload = errors.New("empty payload")

// APIError is the single failure shape of every backend call: transport
// errors, timeouts and non-2xx responses alike. Status is 0 when no
// response was received.
type APIError struct {
	Message string          `json:"message"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	err error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("lectio api: status %d: %s", e.Status, e.Message)
	}
	return "lectio api: " + e.Message
}

func (e *APIError) Unwrap() error { return e.err }

// NotFound builds the error returned when a payload is empty or absent.
func NotFound(message string) *APIError {
	return &APIError{Message: message, err: ErrEmptyPayload}
}

func fromResponse(status int, body []byte) *APIError {
	return &APIError{
		Message: messageFromBody(body),
		Status:  status,
		Data:    dataFromBody(body),
	}
}

func fromTransport(err error) *APIError {
	message := "No response from server"
	if isTimeout(err) {
		message = "Request timed out"
	}
	return &APIError{Message: message, err: err}
}

func messageFromBody(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return defaultErrorMessage
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Detail) == 0 {
		return defaultErrorMessage
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
		return detail
	}

	// Request validation failures list one entry per offending field.
	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &issues); err == nil && len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return defaultErrorMessage
}

func dataFromBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsForbidden(err error) bool    { return StatusOf(err) == http.StatusForbidden }
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound || errors.Is(err, ErrEmptyPayload)
}

func IsTimeout(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.err != nil {
		return isTimeout(apiErr.err)
	}
	return false
}

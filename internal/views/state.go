// Package views shapes fetched pages into what the dashboard renders:
// filtered and sorted rows, chart counts and the controls each row offers.
// Every view is recomputed from its inputs on each call.
package views

import (
	"errors"

	"github.com/lectio/admin-console/internal/apiclient"
)

type Status string

const (
	StatusReady     Status = "ready"
	StatusError     Status = "error"
	StatusForbidden Status = "forbidden"
)

const forbiddenMessage = "You do not have permission to view this page"

// State is the load state of a view. Retry names the fetch to repeat.
type State struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Retry   string `json:"retry,omitempty"`
}

func StateOf(err error, retry string) State {
	if err == nil {
		return State{Status: StatusReady}
	}
	if apiclient.IsForbidden(err) {
		return State{Status: StatusForbidden, Message: forbiddenMessage}
	}

	message := err.Error()
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}
	return State{Status: StatusError, Message: message, Retry: retry}
}

// View pairs a payload with its load state. Data is left zero unless ready.
type View[T any] struct {
	State State `json:"state"`
	Data  T     `json:"data"`
}

func Load[T any](data T, err error, retry string) View[T] {
	state := StateOf(err, retry)
	if state.Status != StatusReady {
		var zero T
		return View[T]{State: state, Data: zero}
	}
	return View[T]{State: state, Data: data}
}

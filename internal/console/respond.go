package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lectio/admin-console/internal/api"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/authgate"
	"github.com/lectio/admin-console/internal/observability"
	"github.com/lectio/admin-console/internal/views"
	"github.com/sirupsen/logrus"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"success": false,
		"message": message,
	})
}

func respondWithView[T any](w http.ResponseWriter, data T) {
	respondWithJSON(w, http.StatusOK, views.Load(data, nil, ""))
}

func respondWithMessage(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"success": true,
		"message": message,
	})
}

type failure struct {
	State    views.State       `json:"state"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// fail maps a backend or validation failure onto the console's response.
// retry names the fetch a dashboard should repeat.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, retry string) {
	entry := s.logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": apiclient.StatusOf(err),
	}).WithError(err)

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		entry.Debug("Client went away")
		return
	}

	var verr *api.ValidationError
	if errors.As(err, &verr) {
		respondWithJSON(w, http.StatusUnprocessableEntity, failure{
			State:  views.State{Status: views.StatusError, Message: "Invalid request"},
			Fields: verr.Fields,
		})
		return
	}

	state := views.StateOf(err, retry)
	status := apiclient.StatusOf(err)
	switch {
	case status == http.StatusUnauthorized:
		respondWithJSON(w, http.StatusUnauthorized, failure{State: state, Redirect: authgate.RedirectTo})
	case status == http.StatusForbidden:
		entry.Info("Backend refused access")
		respondWithJSON(w, http.StatusForbidden, failure{State: state})
	case apiclient.IsNotFound(err):
		state.Retry = ""
		respondWithJSON(w, http.StatusNotFound, failure{State: state})
	case status >= 400 && status < 500:
		state.Retry = ""
		respondWithJSON(w, status, failure{State: state})
	default:
		entry.Error("Backend unavailable")
		observability.CaptureRequestErr(r, http.StatusBadGateway, err)
		respondWithJSON(w, http.StatusBadGateway, failure{State: state})
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// pageParams reads skip and limit; normalisation happens in the api layer.
func pageParams(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("skip must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
	}
	return skip, limit, nil
}

package console

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/views"
	"github.com/lectio/admin-console/pkg/models"
)

// listOrders serves the admin order table, or one student's orders when
// ?student= is given.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := views.ParseOrderFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var orders []models.Order
	if student := r.URL.Query().Get("student"); student != "" {
		orders, err = s.service.StudentOrders(r.Context(), student)
	} else {
		orders, err = s.service.AdminOrders(r.Context())
	}
	if err != nil {
		s.fail(w, r, err, "orders")
		return
	}
	respondWithView(w, views.BuildOrders(orders, filter))
}

// orderAction forwards one workflow transition. The print action takes an
// optional {"appointment_date": ...} body.
func (s *Server) orderAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	action, err := models.ParseOrderAction(vars["action"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	if action == models.ActionPrint {
		var body models.MarkReadyRequest
		if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		var date *time.Time
		if body.AppointmentDate != nil && !body.AppointmentDate.IsZero() {
			date = &body.AppointmentDate.Time
		}
		err = s.service.MarkOrderReady(r.Context(), vars["id"], date)
	} else {
		err = s.service.TransitionOrder(r.Context(), vars["id"], action)
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"order_id": vars["id"],
		"action":   action,
	})
}

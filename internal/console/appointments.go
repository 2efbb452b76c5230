package console

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/pkg/models"
)

// listAppointments returns raw references, or resolved student and admin
// records with ?enriched=true.
func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if enriched, _ := strconv.ParseBool(r.URL.Query().Get("enriched")); enriched {
		appointments, err := s.service.AppointmentsWithUsers(r.Context(), skip, limit)
		if err != nil {
			s.fail(w, r, err, "appointments")
			return
		}
		respondWithView(w, appointments)
		return
	}

	appointments, err := s.service.Appointments(r.Context(), skip, limit)
	if err != nil {
		s.fail(w, r, err, "appointments")
		return
	}
	respondWithView(w, appointments)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := s.service.Appointment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, "appointment")
		return
	}
	respondWithView(w, appointment)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var in models.CreateAppointment
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.service.CreateAppointment(r.Context(), in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusCreated, "Appointment created")
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAppointment(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusOK, "Appointment deleted")
}

package fakebackend

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/pkg/models"
)

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request, _ *models.User) {
	skip, limit := pageParams(r)

	s.mu.RLock()
	appointments := make([]models.Appointment, 0, len(s.apptSeq))
	for _, id := range s.apptSeq {
		if a, ok := s.appointments[id]; ok {
			appointments = append(appointments, *a)
		}
	}
	s.mu.RUnlock()

	from, to := window(len(appointments), skip, limit)
	respondWithJSON(w, http.StatusOK, appointments[from:to])
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	s.mu.RLock()
	a, ok := s.appointments[mux.Vars(r)["id"]]
	var out models.Appointment
	if ok {
		out = *a
	}
	s.mu.RUnlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request, admin *models.User) {
	var req models.CreateAppointment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[req.StudentID]; !ok {
		respondWithError(w, http.StatusNotFound, "Student not found")
		return
	}
	if _, ok := s.orders[req.OrderID]; !ok {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	created := s.addAppointmentLocked(models.Appointment{
		Order:       models.Ref{ID: req.OrderID, Collection: "Order"},
		Student:     models.Ref{ID: req.StudentID, Collection: "User"},
		Admin:       models.Ref{ID: admin.ID, Collection: "User"},
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
	})
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.appointments[id]
	delete(s.appointments, id)
	s.mu.Unlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	respondWithJSON(w, http.StatusOK, models.MessageResponse{Message: "Appointment deleted"})
}

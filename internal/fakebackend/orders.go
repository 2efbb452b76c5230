package fakebackend

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

var transitionErrors = map[models.OrderAction]string{
	models.ActionAccept:  "Order not found or already accepted",
	models.ActionReject:  "Order not found or not pending",
	models.ActionPrint:   "Order must be in 'printing' state",
	models.ActionDeliver: "Order not in ready state or admin mismatch",
}

func (s *Server) ordersLocked(keep func(*models.Order) bool) []models.Order {
	out := make([]models.Order, 0, len(s.orderSeq))
	for _, id := range s.orderSeq {
		if o, ok := s.orders[id]; ok && keep(o) {
			out = append(out, *o)
		}
	}
	return out
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request, _ *models.User) {
	s.mu.RLock()
	orders := s.ordersLocked(func(*models.Order) bool { return true })
	s.mu.RUnlock()
	respondWithJSON(w, http.StatusOK, orders)
}

func (s *Server) studentOrders(w http.ResponseWriter, r *http.Request, _ *models.User) {
	studentID := mux.Vars(r)["id"]

	s.mu.RLock()
	orders := s.ordersLocked(func(o *models.Order) bool {
		return o.Student != nil && o.Student.ID == studentID
	})
	s.mu.RUnlock()

	if len(orders) == 0 {
		respondWithError(w, http.StatusNotFound, "No orders found for this user")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (s *Server) transition(action models.OrderAction) userHandler {
	return func(w http.ResponseWriter, r *http.Request, admin *models.User) {
		id := mux.Vars(r)["id"]

		var body models.MarkReadyRequest
		if action == models.ActionPrint && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				respondWithError(w, http.StatusUnprocessableEntity, "Invalid request body")
				return
			}
		}

		s.mu.Lock()
		order, ok := s.orders[id]
		var next models.OrderStatus
		valid := false
		if ok {
			next, valid = order.Status.Next(action)
		}
		if valid {
			if next == "" {
				delete(s.orders, id)
			} else {
				order.Status = next
				if body.AppointmentDate != nil {
					date := *body.AppointmentDate
					order.AppointmentDate = &date
				}
			}
		}
		var out models.Order
		if ok {
			out = *order
		}
		s.mu.Unlock()

		if !valid {
			respondWithError(w, http.StatusBadRequest, transitionErrors[action])
			return
		}

		s.logger.WithFields(logrus.Fields{
			"order_id": id,
			"action":   action,
			"status":   next,
			"admin_id": admin.ID,
		}).Info("Order transitioned")
		respondWithJSON(w, http.StatusOK, out)
	}
}

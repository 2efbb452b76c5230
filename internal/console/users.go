package console

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/authgate"
	"github.com/lectio/admin-console/internal/views"
	"github.com/lectio/admin-console/pkg/models"
)

// listUsers serves every account, or only students with ?scope=students.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := views.ParseUserFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, limit, err := pageParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var users []models.User
	if r.URL.Query().Get("scope") == "students" {
		users, err = s.service.Students(r.Context(), skip, limit)
	} else {
		users, err = s.service.Users(r.Context(), skip, limit)
	}
	if err != nil {
		s.fail(w, r, err, "users")
		return
	}

	me, _ := authgate.UserFrom(r.Context())
	respondWithView(w, views.BuildUsers(me, users, filter))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.User(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, "user")
		return
	}
	me, _ := authgate.UserFrom(r.Context())
	respondWithView(w, views.UserRow{User: user, Actions: views.UserActions(me, user)})
}

func (s *Server) blockUser(block bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var err error
		message := "User blocked"
		if block {
			err = s.service.BlockUser(r.Context(), id)
		} else {
			err = s.service.UnblockUser(r.Context(), id)
			message = "User unblocked"
		}
		if err != nil {
			s.fail(w, r, err, "")
			return
		}
		respondWithMessage(w, http.StatusOK, message)
	}
}

func (s *Server) addAdmin(w http.ResponseWriter, r *http.Request) {
	var body models.AddAdminRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.service.AddAdmin(r.Context(), mux.Vars(r)["id"], body.Placement); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusOK, "Admin added")
}

func (s *Server) removeAdmin(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveAdmin(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusOK, "Admin removed")
}

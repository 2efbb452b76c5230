package fakebackend

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.RLock()
	id, ok := s.byEmail[creds.Email]
	var acc *account
	if ok {
		acc = s.accounts[id]
	}
	s.mu.RUnlock()

	if acc == nil || acc.password != creds.Password {
		s.logger.WithField("email", creds.Email).Warn("Rejected login")
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.IssueToken(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not create access token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     apiclient.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokenLifetime.Seconds()),
	})
	respondWithJSON(w, http.StatusOK, models.LoginResponse{AccessToken: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: apiclient.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	respondWithJSON(w, http.StatusOK, models.MessageResponse{Message: "Successfully logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, user *models.User) {
	respondWithJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(studentsOnly bool) userHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *models.User) {
		skip, limit := pageParams(r)

		s.mu.RLock()
		users := make([]models.User, 0, len(s.accounts))
		for _, acc := range s.accounts {
			if studentsOnly && acc.user.IsAdmin() {
				continue
			}
			users = append(users, *acc.user)
		}
		s.mu.RUnlock()

		sort.Slice(users, func(i, j int) bool {
			if !users[i].CreatedAt.Equal(users[j].CreatedAt.Time) {
				return users[i].CreatedAt.Before(users[j].CreatedAt.Time)
			}
			return users[i].Email < users[j].Email
		})
		from, to := window(len(users), skip, limit)
		respondWithJSON(w, http.StatusOK, users[from:to])
	}
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, _ *models.User) {
	user, ok := s.User(mux.Vars(r)["id"])
	if !ok {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, change func(u *models.User)) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	acc, ok := s.accounts[id]
	var updated models.User
	if ok {
		change(acc.user)
		updated = *acc.user
	}
	s.mu.Unlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"user_id": id,
		"roles":   updated.Roles,
		"blocked": updated.IsBlocked,
	}).Info("User updated")
	respondWithJSON(w, http.StatusOK, updated)
}

func (s *Server) addAdmin(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var body models.AddAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Placement == "" {
		respondWithError(w, http.StatusUnprocessableEntity, "placement is required")
		return
	}
	s.updateUser(w, r, func(u *models.User) {
		if !u.HasRole(models.RoleAdmin) {
			u.Roles = append(u.Roles, models.RoleAdmin)
		}
		u.Placement = body.Placement
	})
}

func (s *Server) removeAdmin(w http.ResponseWriter, r *http.Request, _ *models.User) {
	s.updateUser(w, r, func(u *models.User) {
		roles := u.Roles[:0]
		for _, role := range u.Roles {
			if role != models.RoleAdmin {
				roles = append(roles, role)
			}
		}
		u.Roles = roles
		u.Placement = ""
	})
}

func (s *Server) setBlocked(blocked bool) userHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *models.User) {
		s.updateUser(w, r, func(u *models.User) { u.IsBlocked = blocked })
	}
}

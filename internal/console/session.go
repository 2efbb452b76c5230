package console

import (
	"net/http"
	"time"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/authgate"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

const sessionLifetime = 24 * time.Hour

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.service.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	ctx := queries.WithSession(r.Context(), resp.AccessToken)
	user, err := s.service.CurrentUser(ctx)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	http.SetCookie(w, s.sessionCookie(resp.AccessToken, int(sessionLifetime.Seconds())))
	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"roles":   user.Roles,
	}).Info("Console session opened")
	respondWithView(w, user)
}

// logout ends the backend session when there is one and always clears the
// console cookie.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := authgate.Token(r); token != "" {
		ctx := queries.WithSession(r.Context(), token)
		if err := s.service.Logout(ctx); err != nil && !apiclient.IsUnauthorized(err) {
			s.logger.WithError(err).Warn("Backend logout failed")
		}
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	respondWithMessage(w, http.StatusOK, "Successfully logged out")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, _ := authgate.UserFrom(r.Context())
	respondWithView(w, user)
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     apiclient.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

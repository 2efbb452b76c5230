// Package authgate protects the console routes that need a signed-in user.
package authgate

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

// RedirectTo is where rejected visitors are sent.
const RedirectTo = "/"

// Identity answers "who am I" for the session bound to ctx.
// *queries.Service satisfies it through its cached read.
type Identity interface {
	CurrentUser(ctx context.Context) (models.User, error)
}

type userKey struct{}

type Gate struct {
	identity Identity
	logger   *logrus.Logger
}

func New(identity Identity, logger *logrus.Logger) *Gate {
	return &Gate{identity: identity, logger: logger}
}

// Middleware binds the request to its session, checks it once and hands the
// user to the wrapped handler through the request context.
func (g *Gate) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := Token(r)
			if token == "" {
				g.reject(w, r, "missing session")
				return
			}

			ctx := queries.WithSession(r.Context(), token)
			user, err := g.identity.CurrentUser(ctx)
			if err != nil {
				g.logger.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"status": apiclient.StatusOf(err),
				}).WithError(err).Info("Session check failed")
				g.reject(w, r, "session check failed")
				return
			}

			ctx = queries.WithActor(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey{}, user)))
		})
	}
}

// UserFrom returns the user stored by the gate.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey{}).(models.User)
	return u, ok
}

// Token reads the session from the access_token cookie, falling back to a
// bearer Authorization header for scripted clients.
func Token(r *http.Request) string {
	if c, err := r.Cookie(apiclient.SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, reason string) {
	if wantsHTML(r) {
		http.Redirect(w, r, RedirectTo, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":    reason,
		"redirect": RedirectTo,
	})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

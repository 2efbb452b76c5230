// Package fakebackend is an in-memory stand-in for the Lectio backend. It
// serves the same routes with the same auth, role and transition rules so
// the console can run and be tested without the real service.
package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

const tokenLifetime = 24 * time.Hour

type account struct {
	user     *models.User
	password string
}

type Server struct {
	mu            sync.RWMutex
	accounts      map[string]*account
	byEmail       map[string]string
	materials     map[string]*models.Material
	materialOrder []string
	files         map[string]models.Download
	orders        map[string]*models.Order
	orderSeq      []string
	appointments  map[string]*models.Appointment
	apptSeq       []string
	notifications []models.NotificationPayload

	statsMu sync.Mutex
	calls   map[string]int
	delays  map[string]time.Duration

	secret []byte
	logger *logrus.Logger
	router *mux.Router
	now    func() time.Time
}

func New(secret string, logger *logrus.Logger) *Server {
	s := &Server{
		accounts:     make(map[string]*account),
		byEmail:      make(map[string]string),
		materials:    make(map[string]*models.Material),
		files:        make(map[string]models.Download),
		orders:       make(map[string]*models.Order),
		appointments: make(map[string]*models.Appointment),
		calls:        make(map[string]int),
		delays:       make(map[string]time.Duration),
		secret:       []byte(secret),
		logger:       logger,
		now:          time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", healthCheck).Methods("GET").Name("health")

	r.HandleFunc("/users/login", s.login).Methods("POST").Name("users.login")
	r.HandleFunc("/users/logout", s.logout).Methods("POST").Name("users.logout")
	r.HandleFunc("/users/me", s.authed(s.me)).Methods("GET").Name("users.me")
	r.HandleFunc("/users/all-users", s.admin(s.listUsers(false))).Methods("GET").Name("users.all")
	r.HandleFunc("/users/all-students", s.admin(s.listUsers(true))).Methods("GET").Name("users.students")
	r.HandleFunc("/users/get-user/{id}", s.admin(s.getUser)).Methods("GET").Name("users.get")
	r.HandleFunc("/users/add-admin/{id}", s.superAdmin(s.addAdmin)).Methods("POST").Name("users.add_admin")
	r.HandleFunc("/users/remove-admin/{id}", s.superAdmin(s.removeAdmin)).Methods("DELETE").Name("users.remove_admin")
	r.HandleFunc("/users/block/{id}", s.superAdmin(s.setBlocked(true))).Methods("POST").Name("users.block")
	r.HandleFunc("/users/unblock/{id}", s.superAdmin(s.setBlocked(false))).Methods("PUT").Name("users.unblock")

	r.HandleFunc("/materials/", s.listMaterials).Methods("GET").Name("materials.list")
	r.HandleFunc("/materials/", s.admin(s.createMaterial)).Methods("POST").Name("materials.create")
	r.HandleFunc("/materials/{id}", s.admin(s.updateMaterial)).Methods("PATCH").Name("materials.update")
	r.HandleFunc("/materials/{id}", s.admin(s.deleteMaterial)).Methods("DELETE").Name("materials.delete")
	r.HandleFunc("/materials/{id}/admin", s.admin(s.getMaterial)).Methods("GET").Name("materials.get")
	r.HandleFunc("/materials/{id}/get_image", s.download).Methods("GET").Name("materials.image")
	r.HandleFunc("/materials/{id}/get_file", s.download).Methods("GET").Name("materials.file")

	r.HandleFunc("/orders/get_admin_orders", s.admin(s.adminOrders)).Methods("GET").Name("orders.admin")
	r.HandleFunc("/orders/admin/{id}/accept", s.admin(s.transition(models.ActionAccept))).Methods("PUT", "PATCH").Name("orders.accept")
	r.HandleFunc("/orders/admin/{id}/reject", s.admin(s.transition(models.ActionReject))).Methods("PUT", "PATCH").Name("orders.reject")
	r.HandleFunc("/orders/admin/{id}/ready", s.admin(s.transition(models.ActionPrint))).Methods("PUT", "PATCH").Name("orders.ready")
	r.HandleFunc("/orders/admin/{id}/delivered", s.admin(s.transition(models.ActionDeliver))).Methods("PUT", "PATCH").Name("orders.delivered")
	r.HandleFunc("/orders/{id}", s.admin(s.studentOrders)).Methods("GET").Name("orders.student")

	r.HandleFunc("/appointements/", s.admin(s.listAppointments)).Methods("GET").Name("appointments.list")
	r.HandleFunc("/appointements/", s.admin(s.createAppointment)).Methods("POST").Name("appointments.create")
	r.HandleFunc("/appointements/{id}", s.admin(s.getAppointment)).Methods("GET").Name("appointments.get")
	r.HandleFunc("/appointements/{id}", s.admin(s.deleteAppointment)).Methods("DELETE").Name("appointments.delete")

	r.HandleFunc("/notifications/", s.authed(s.listNotifications)).Methods("GET").Name("notifications.list")
	r.HandleFunc("/dashboard/analytics", s.admin(s.analytics)).Methods("GET").Name("dashboard.analytics")

	return r
}

// Calls returns how many requests the named route has served.
func (s *Server) Calls(route string) int {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.calls[route]
}

// SetDelay makes the named route wait before answering.
func (s *Server) SetDelay(route string, d time.Duration) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.delays[route] = d
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var name string
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.statsMu.Lock()
		s.calls[name]++
		delay := s.delays[name]
		s.statsMu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"route":  name,
		}).Debug("Fake backend request")

		next.ServeHTTP(w, r)
	})
}

// IssueToken signs a session token for userID.
func (s *Server) IssueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(tokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) currentUser(r *http.Request) (*models.User, int, string) {
	var raw string
	if c, err := r.Cookie(apiclient.SessionCookie); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return nil, http.StatusUnauthorized, "No token provided"
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, 498, "Token expired"
		}
		return nil, http.StatusUnauthorized, "Invalid token"
	}

	s.mu.RLock()
	acc, ok := s.accounts[claims.Subject]
	var user models.User
	if ok {
		user = *acc.user
	}
	s.mu.RUnlock()
	if !ok {
		return nil, http.StatusUnauthorized, "User not found"
	}
	return &user, 0, ""
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

func (s *Server) authed(h userHandler) http.HandlerFunc {
	return s.withRoles(h)
}

func (s *Server) admin(h userHandler) http.HandlerFunc {
	return s.withRoles(h, models.RoleAdmin, models.RoleSuperAdmin)
}

func (s *Server) superAdmin(h userHandler) http.HandlerFunc {
	return s.withRoles(h, models.RoleSuperAdmin)
}

func (s *Server) withRoles(h userHandler, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, status, msg := s.currentUser(r)
		if user == nil {
			respondWithError(w, status, msg)
			return
		}
		if len(roles) > 0 {
			if user.IsBlocked {
				respondWithError(w, http.StatusForbidden, "User is blocked")
				return
			}
			allowed := false
			for _, role := range roles {
				if user.HasRole(role) {
					allowed = true
					break
				}
			}
			if !allowed {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
		}
		h(w, r, user)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "backend-mock",
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, detail string) {
	respondWithJSON(w, code, map[string]string{"detail": detail})
}

func pageParams(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func window(n, skip, limit int) (int, int) {
	if skip > n {
		skip = n
	}
	end := skip + limit
	if end > n {
		end = n
	}
	return skip, end
}

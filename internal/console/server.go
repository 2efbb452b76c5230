// Package console is the HTTP surface the admin dashboard talks to. It
// serves view models as JSON, dispatches mutations to the backend and
// pushes invalidations to connected dashboards.
package console

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/authgate"
	"github.com/lectio/admin-console/internal/metrics"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/sirupsen/logrus"
)

// Socket is the websocket endpoint. *websocket.Hub satisfies it.
type Socket interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

type Options struct {
	AllowedOrigin string
	CookieSecure  bool
	// StaticDir, when set, is served at / for the dashboard bundle.
	StaticDir string
}

type Server struct {
	service *queries.Service
	gate    *authgate.Gate
	socket  Socket
	logger  *logrus.Logger
	opts    Options
	now     func() time.Time
}

// New builds the console. socket may be nil to disable /ws.
func New(service *queries.Service, socket Socket, logger *logrus.Logger, opts Options) *Server {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	return &Server{
		service: service,
		gate:    authgate.New(service, logger),
		socket:  socket,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// AssetURL points material files at the console's own download routes so
// browsers never talk to the backend directly.
func AssetURL(kind, fileID string) string {
	return "/api/materials/files/" + url.PathEscape(fileID) + "/" + kind
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware(s.opts.AllowedOrigin))
	r.Use(loggingMiddleware(s.logger))

	r.HandleFunc("/health", s.health).Methods("GET", "OPTIONS").Name("health")
	r.Handle("/metrics", metrics.Handler()).Methods("GET").Name("metrics")
	if s.socket != nil {
		ws := s.gate.Middleware()(http.HandlerFunc(s.socket.HandleWebSocket))
		r.Handle("/ws", ws).Methods("GET").Name("ws")
	}

	r.HandleFunc("/api/session/login", s.login).Methods("POST", "OPTIONS").Name("session.login")
	r.HandleFunc("/api/session/logout", s.logout).Methods("POST", "OPTIONS").Name("session.logout")

	p := r.PathPrefix("/api").Subrouter()
	p.Use(s.gate.Middleware())

	p.HandleFunc("/me", s.me).Methods("GET", "OPTIONS").Name("me")
	p.HandleFunc("/dashboard", s.dashboard).Methods("GET", "OPTIONS").Name("dashboard")
	p.HandleFunc("/analytics", s.analytics).Methods("GET", "OPTIONS").Name("analytics")
	p.HandleFunc("/notifications", s.notifications).Methods("GET", "OPTIONS").Name("notifications")

	p.HandleFunc("/orders", s.listOrders).Methods("GET", "OPTIONS").Name("orders.list")
	p.HandleFunc("/orders/{id}/{action}", s.orderAction).Methods("POST", "OPTIONS").Name("orders.action")

	p.HandleFunc("/users", s.listUsers).Methods("GET", "OPTIONS").Name("users.list")
	p.HandleFunc("/users/{id}", s.getUser).Methods("GET", "OPTIONS").Name("users.get")
	p.HandleFunc("/users/{id}/block", s.blockUser(true)).Methods("POST", "OPTIONS").Name("users.block")
	p.HandleFunc("/users/{id}/unblock", s.blockUser(false)).Methods("POST", "OPTIONS").Name("users.unblock")
	p.HandleFunc("/users/{id}/admin", s.addAdmin).Methods("POST", "OPTIONS").Name("users.add_admin")
	p.HandleFunc("/users/{id}/admin", s.removeAdmin).Methods("DELETE").Name("users.remove_admin")

	p.HandleFunc("/materials", s.listMaterials).Methods("GET", "OPTIONS").Name("materials.list")
	p.HandleFunc("/materials", s.createMaterial).Methods("POST").Name("materials.create")
	p.HandleFunc("/materials/files/{fileID}/{kind:image|file}", s.materialFile).Methods("GET", "OPTIONS").Name("materials.file")
	p.HandleFunc("/materials/{id}", s.getMaterial).Methods("GET", "OPTIONS").Name("materials.get")
	p.HandleFunc("/materials/{id}", s.editMaterial).Methods("PATCH").Name("materials.edit")
	p.HandleFunc("/materials/{id}", s.deleteMaterial).Methods("DELETE").Name("materials.delete")

	p.HandleFunc("/appointments", s.listAppointments).Methods("GET", "OPTIONS").Name("appointments.list")
	p.HandleFunc("/appointments", s.createAppointment).Methods("POST").Name("appointments.create")
	p.HandleFunc("/appointments/{id}", s.getAppointment).Methods("GET", "OPTIONS").Name("appointments.get")
	p.HandleFunc("/appointments/{id}", s.deleteAppointment).Methods("DELETE").Name("appointments.delete")

	p.HandleFunc("/export/orders.xlsx", s.exportOrders).Methods("GET", "OPTIONS").Name("export.orders")
	p.HandleFunc("/export/users.xlsx", s.exportUsers).Methods("GET", "OPTIONS").Name("export.users")

	if s.opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir))).Name("static")
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":     "healthy",
		"service":    "console",
		"last_check": s.now().Format(time.RFC3339),
	}

	start := time.Now()
	if err := s.service.Cache().Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["cache"] = map[string]any{"status": "unhealthy", "error": err.Error()}
	} else {
		status["cache"] = map[string]any{"status": "healthy", "response_time": time.Since(start).Milliseconds()}
	}
	if s.socket != nil {
		status["websocket_clients"] = s.socket.ClientCount()
	}

	code := http.StatusOK
	if status["status"] != "healthy" {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, status)
}

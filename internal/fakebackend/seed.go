package fakebackend

import (
	"time"

	"github.com/google/uuid"
	"github.com/lectio/admin-console/pkg/models"
)

func newID() string {
	return uuid.New().String()
}

// AddUser stores a user with the given password and returns it with its
// assigned id.
func (s *Server) AddUser(u models.User, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = newID()
	}
	if len(u.Roles) == 0 {
		u.Roles = []string{models.RoleUser}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = models.NewTimestamp(s.now().UTC())
	}
	stored := u
	s.accounts[u.ID] = &account{user: &stored, password: password}
	s.byEmail[u.Email] = u.ID
	return u
}

func (s *Server) AddMaterial(m models.Material) models.Material {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = models.NewTimestamp(s.now().UTC())
	}
	if m.ImageURLs == nil {
		m.ImageURLs = []string{}
	}
	stored := m
	s.materials[m.ID] = &stored
	s.materialOrder = append(s.materialOrder, m.ID)
	return m
}

// AddOrder stores an order placed by studentID for the given material
// quantities.
func (s *Server) AddOrder(studentID string, status models.OrderStatus, lines map[string]int) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := models.Order{
		ID:        newID(),
		Status:    status,
		CreatedAt: models.NewTimestamp(s.now().UTC()),
	}
	if acc, ok := s.accounts[studentID]; ok {
		order.Student = &models.OrderStudent{
			ID:          acc.user.ID,
			FullName:    acc.user.FullName,
			Email:       acc.user.Email,
			PhoneNumber: acc.user.PhoneNumber,
		}
	}
	for materialID, qty := range lines {
		if m, ok := s.materials[materialID]; ok {
			order.Items = append(order.Items, models.OrderLine{Material: *m, Quantity: qty})
		}
	}
	stored := order
	s.orders[order.ID] = &stored
	s.orderSeq = append(s.orderSeq, order.ID)
	return order
}

func (s *Server) AddAppointment(a models.Appointment) models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAppointmentLocked(a)
}

func (s *Server) addAppointmentLocked(a models.Appointment) models.Appointment {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = models.NewTimestamp(s.now().UTC())
	}
	stored := a
	s.appointments[a.ID] = &stored
	s.apptSeq = append(s.apptSeq, a.ID)
	return a
}

func (s *Server) AddNotification(userID, message string) models.NotificationPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := models.NotificationPayload{
		ID:        newID(),
		Message:   message,
		UserID:    models.Ref{ID: userID, Collection: "User"},
		CreatedAt: models.NewTimestamp(s.now().UTC()),
	}
	s.notifications = append(s.notifications, n)
	return n
}

// User returns a copy of the stored user.
func (s *Server) User(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.User{}, false
	}
	return *acc.user, true
}

func (s *Server) Order(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

// Demo holds the ids of the records created by SeedDemo.
type Demo struct {
	SuperAdmin models.User
	Admin      models.User
	Students   []models.User
	Materials  []models.Material
	Orders     []models.Order
}

// SeedDemo fills the store with a small, consistent data set.
func (s *Server) SeedDemo() Demo {
	var d Demo
	d.SuperAdmin = s.AddUser(models.User{
		Email: "root@lectio.dz", FullName: "Super Admin", Roles: []string{models.RoleUser, models.RoleSuperAdmin},
	}, "root")
	d.Admin = s.AddUser(models.User{
		Email: "admin@lectio.dz", FullName: "Amina Admin", Roles: []string{models.RoleUser, models.RoleAdmin}, Placement: "alger",
	}, "admin")
	for _, st := range []struct{ email, name, year string }{
		{"yacine@lectio.dz", "Yacine Benali", "3"},
		{"sara@lectio.dz", "Sara Khelifi", "1"},
	} {
		d.Students = append(d.Students, s.AddUser(models.User{
			Email: st.email, FullName: st.name, StudyYear: st.year, Specialite: "medecine",
		}, "student"))
	}

	d.Materials = append(d.Materials,
		s.AddMaterial(models.Material{Title: "Anatomie générale", Description: "Polycopié du premier semestre",
			MaterialType: models.MaterialPolycopie, PriceDZD: 800, StudyYear: "1", Specialite: "medecine"}),
		s.AddMaterial(models.Material{Title: "Physiologie", Description: "Manuel de référence",
			MaterialType: models.MaterialBook, PriceDZD: 2500, StudyYear: "3", Specialite: "medecine"}),
	)

	d.Orders = append(d.Orders,
		s.AddOrder(d.Students[0].ID, models.OrderPending, map[string]int{d.Materials[0].ID: 2}),
		s.AddOrder(d.Students[1].ID, models.OrderPrinting, map[string]int{d.Materials[1].ID: 1}),
	)

	s.AddAppointment(models.Appointment{
		Order:       models.Ref{ID: d.Orders[1].ID, Collection: "Order"},
		Student:     models.Ref{ID: d.Students[1].ID, Collection: "User"},
		Admin:       models.Ref{ID: d.Admin.ID, Collection: "User"},
		ScheduledAt: models.NewTimestamp(s.now().UTC().Add(48 * time.Hour)),
		Location:    "Bibliothèque centrale",
	})
	s.AddNotification(d.Students[0].ID, "Votre commande a été reçue")
	return d
}

// Package endpoints is the table of backend routes used by the API modules.
package endpoints

import (
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is a method and a path template. Templates use {id} for the
// single path parameter every Lectio route takes.
type Endpoint struct {
	Method string
	Path   string
}

// With returns the endpoint with {id} replaced by the escaped id.
func (e Endpoint) With(id string) Endpoint {
	return Endpoint{
		Method: e.Method,
		Path:   strings.ReplaceAll(e.Path, "{id}", url.PathEscape(id)),
	}
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

// Family is the resource segment of the path, used to pick a circuit breaker
// and to label metrics.
func (e Endpoint) Family() string {
	trimmed := strings.TrimPrefix(e.Path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

var Auth = struct {
	Login, Logout, Me Endpoint
}{
	Login:  Endpoint{http.MethodPost, "/users/login"},
	Logout: Endpoint{http.MethodPost, "/users/logout"},
	Me:     Endpoint{http.MethodGet, "/users/me"},
}

var Users = struct {
	All, Students, ByID, AddAdmin, RemoveAdmin, Block, Unblock Endpoint
}{
	All:         Endpoint{http.MethodGet, "/users/all-users"},
	Students:    Endpoint{http.MethodGet, "/users/all-students"},
	ByID:        Endpoint{http.MethodGet, "/users/get-user/{id}"},
	AddAdmin:    Endpoint{http.MethodPost, "/users/add-admin/{id}"},
	RemoveAdmin: Endpoint{http.MethodDelete, "/users/remove-admin/{id}"},
	Block:       Endpoint{http.MethodPost, "/users/block/{id}"},
	Unblock:     Endpoint{http.MethodPut, "/users/unblock/{id}"},
}

var Materials = struct {
	List, Create, Update, Delete, AdminByID, Image, File Endpoint
}{
	List:      Endpoint{http.MethodGet, "/materials/"},
	Create:    Endpoint{http.MethodPost, "/materials/"},
	Update:    Endpoint{http.MethodPatch, "/materials/{id}"},
	Delete:    Endpoint{http.MethodDelete, "/materials/{id}"},
	AdminByID: Endpoint{http.MethodGet, "/materials/{id}/admin"},
	Image:     Endpoint{http.MethodGet, "/materials/{id}/get_image"},
	File:      Endpoint{http.MethodGet, "/materials/{id}/get_file"},
}

var Orders = struct {
	Root, ByStudent, AdminOrders, Accept, Reject, Ready, Delivered Endpoint
}{
	Root:        Endpoint{http.MethodGet, "/orders"},
	ByStudent:   Endpoint{http.MethodGet, "/orders/{id}"},
	AdminOrders: Endpoint{http.MethodGet, "/orders/get_admin_orders"},
	Accept:      Endpoint{http.MethodPut, "/orders/admin/{id}/accept"},
	Reject:      Endpoint{http.MethodPut, "/orders/admin/{id}/reject"},
	Ready:       Endpoint{http.MethodPut, "/orders/admin/{id}/ready"},
	Delivered:   Endpoint{http.MethodPut, "/orders/admin/{id}/delivered"},
}

// Appointments keeps the backend's spelling of the resource.
var Appointments = struct {
	List, Create, ByID, Delete Endpoint
}{
	List:   Endpoint{http.MethodGet, "/appointements/"},
	Create: Endpoint{http.MethodPost, "/appointements/"},
	ByID:   Endpoint{http.MethodGet, "/appointements/{id}"},
	Delete: Endpoint{http.MethodDelete, "/appointements/{id}"},
}

var Notifications = struct {
	List Endpoint
}{
	List: Endpoint{http.MethodGet, "/notifications/"},
}

var Dashboard = struct {
	Analytics Endpoint
}{
	Analytics: Endpoint{http.MethodGet, "/dashboard/analytics"},
}

package console

import (
	"net/http"

	"github.com/lectio/admin-console/internal/export"
	"github.com/lectio/admin-console/pkg/models"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// exportPageSize is the largest page the backend serves.
	exportPageSize = 100
)

func (s *Server) exportOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.AdminOrders(r.Context())
	if err != nil {
		s.fail(w, r, err, "orders")
		return
	}
	data, err := export.OrdersWorkbook(orders)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build orders workbook")
		respondWithError(w, http.StatusInternalServerError, "Failed to build export")
		return
	}
	s.sendWorkbook(w, "orders", data)
}

// exportUsers walks the user pages until a short page is returned.
func (s *Server) exportUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	for skip := 0; ; skip += exportPageSize {
		page, err := s.service.Users(r.Context(), skip, exportPageSize)
		if err != nil {
			s.fail(w, r, err, "users")
			return
		}
		users = append(users, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	data, err := export.UsersWorkbook(users)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build users workbook")
		respondWithError(w, http.StatusInternalServerError, "Failed to build export")
		return
	}
	s.sendWorkbook(w, "users", data)
}

func (s *Server) sendWorkbook(w http.ResponseWriter, kind string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lectio/admin-console/pkg/models"
)

const dateLayout = "2006-01-02 15:04"

func OrdersWorkbook(orders []models.Order) ([]byte, error) {
	sheet := Sheet{
		Title:  "Orders",
		Header: []string{"ID", "Student", "Email", "Status", "Items", "Materials", "Total (DZD)", "Created", "Appointment"},
	}
	for _, o := range orders {
		var student, email string
		if o.Student != nil {
			student, email = o.Student.FullName, o.Student.Email
		}
		titles := make([]string, 0, len(o.Items))
		for _, line := range o.Items {
			titles = append(titles, fmt.Sprintf("%s x%d", line.Material.Title, line.Quantity))
		}
		var appointment string
		if o.AppointmentDate != nil {
			appointment = formatTime(o.AppointmentDate.Time)
		}
		sheet.Rows = append(sheet.Rows, []string{
			o.ID,
			student,
			email,
			string(o.Status),
			strconv.Itoa(o.ItemCount()),
			strings.Join(titles, ", "),
			strconv.FormatFloat(o.Total(), 'f', 2, 64),
			formatTime(o.CreatedAt.Time),
			appointment,
		})
	}
	return Build(sheet)
}

// UsersWorkbook puts staff and students on separate sheets.
func UsersWorkbook(users []models.User) ([]byte, error) {
	header := []string{"ID", "Full name", "Email", "Phone", "Roles", "Blocked", "Study year", "Speciality", "Placement", "Created"}
	staff := Sheet{Title: "Staff", Header: header}
	students := Sheet{Title: "Students", Header: header}

	for _, u := range users {
		row := []string{
			u.ID,
			u.FullName,
			u.Email,
			u.PhoneNumber,
			strings.Join(u.Roles, ", "),
			yesNo(u.IsBlocked),
			u.StudyYear,
			u.Specialite,
			u.Placement,
			formatTime(u.CreatedAt.Time),
		}
		if u.IsAdmin() {
			staff.Rows = append(staff.Rows, row)
		} else {
			students.Rows = append(students.Rows, row)
		}
	}
	return Build(staff, students)
}

// Filename returns a dated attachment name such as orders_2026-04-02.xlsx.
func Filename(kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, now.Format("2006-01-02"))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

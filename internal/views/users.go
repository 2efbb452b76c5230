package views

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/lectio/admin-console/pkg/models"
)

type UserAction string

const (
	UserPromote UserAction = "promote"
	UserDemote  UserAction = "demote"
	UserBlock   UserAction = "block"
	UserUnblock UserAction = "unblock"
)

const (
	SortName  = "name"
	SortEmail = "email"
)

type UserFilter struct {
	Query   string
	Role    string
	Blocked *bool
	Sort    string
}

func ParseUserFilter(q url.Values) (UserFilter, error) {
	f := UserFilter{Query: strings.TrimSpace(q.Get("q")), Sort: q.Get("sort")}

	switch role := q.Get("role"); role {
	case "", "all":
	case models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin:
		f.Role = role
	default:
		return UserFilter{}, fmt.Errorf("unknown role %q", role)
	}

	if s := q.Get("blocked"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return UserFilter{}, fmt.Errorf("blocked: %w", err)
		}
		f.Blocked = &b
	}

	switch f.Sort {
	case "":
		f.Sort = SortName
	case SortName, SortEmail, SortDateAsc, SortDateDesc:
	default:
		return UserFilter{}, fmt.Errorf("unknown sort %q", f.Sort)
	}
	return f, nil
}

func (f UserFilter) match(u models.User) bool {
	if f.Role != "" && !u.HasRole(f.Role) {
		return false
	}
	if f.Blocked != nil && u.IsBlocked != *f.Blocked {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return contains(u.FullName, q) || contains(u.Email, q) || contains(u.PhoneNumber, q)
}

type UserRow struct {
	User    models.User  `json:"user"`
	Actions []UserAction `json:"actions"`
}

type UsersView struct {
	Rows    []UserRow `json:"rows"`
	Admins  int       `json:"admins"`
	Blocked int       `json:"blocked"`
	Total   int       `json:"total"`
}

func BuildUsers(viewer models.User, users []models.User, f UserFilter) UsersView {
	v := UsersView{Rows: []UserRow{}}
	for _, u := range users {
		if !f.match(u) {
			continue
		}
		v.Rows = append(v.Rows, UserRow{User: u, Actions: UserActions(viewer, u)})
		if u.IsAdmin() {
			v.Admins++
		}
		if u.IsBlocked {
			v.Blocked++
		}
	}
	sortUserRows(v.Rows, f.Sort)
	v.Total = len(v.Rows)
	return v
}

// UserActions lists what viewer may do to target. Only super admins manage
// accounts, never their own, and super admins are never managed.
func UserActions(viewer, target models.User) []UserAction {
	actions := []UserAction{}
	if !viewer.IsSuperAdmin() || viewer.ID == target.ID || target.IsSuperAdmin() {
		return actions
	}
	if target.HasRole(models.RoleAdmin) {
		actions = append(actions, UserDemote)
	} else {
		actions = append(actions, UserPromote)
	}
	if target.IsBlocked {
		actions = append(actions, UserUnblock)
	} else {
		actions = append(actions, UserBlock)
	}
	return actions
}

func sortUserRows(rows []UserRow, by string) {
	byDate := func(a, b UserRow) int { return a.User.CreatedAt.Compare(b.User.CreatedAt.Time) }
	var cmpFn func(a, b UserRow) int
	switch by {
	case SortEmail:
		cmpFn = func(a, b UserRow) int {
			return strings.Compare(strings.ToLower(a.User.Email), strings.ToLower(b.User.Email))
		}
	case SortDateAsc:
		cmpFn = byDate
	case SortDateDesc:
		cmpFn = func(a, b UserRow) int { return -byDate(a, b) }
	default:
		cmpFn = func(a, b UserRow) int {
			return cmp.Or(
				strings.Compare(strings.ToLower(a.User.FullName), strings.ToLower(b.User.FullName)),
				strings.Compare(a.User.Email, b.User.Email),
			)
		}
	}
	slices.SortStableFunc(rows, cmpFn)
}

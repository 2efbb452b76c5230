package models

import (
	"encoding/json"
	"slices"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Roles       []string  `json:"roles"`
	IsBlocked   bool      `json:"isblocked"`
	StudyYear   string    `json:"study_year,omitempty"`
	Specialite  string    `json:"specialite,omitempty"`
	Placement   string    `json:"era,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.LegacyID
	}
	return nil
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleSuperAdmin)
}

func (u User) IsSuperAdmin() bool {
	return u.HasRole(RoleSuperAdmin)
}

// Ref is the backend's link to another document.
type Ref struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type AddAdminRequest struct {
	Placement string `json:"placement" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

package models

import "encoding/json"

type Appointment struct {
	ID          string    `json:"id"`
	Order       Ref       `json:"order"`
	Student     Ref       `json:"student"`
	Admin       Ref       `json:"admin"`
	ScheduledAt Timestamp `json:"scheduled_at"`
	Location    string    `json:"location"`
	CreatedAt   Timestamp `json:"created_at"`
}

func (a *Appointment) UnmarshalJSON(data []byte) error {
	type alias Appointment
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = aux.LegacyID
	}
	return nil
}

// EnrichedAppointment is an appointment whose student and admin references
// have been resolved to full user records.
type EnrichedAppointment struct {
	ID          string    `json:"id"`
	Order       Ref       `json:"order"`
	Student     User      `json:"student"`
	Admin       User      `json:"admin"`
	ScheduledAt Timestamp `json:"scheduled_at"`
	Location    string    `json:"location"`
	CreatedAt   Timestamp `json:"created_at"`
}

type CreateAppointment struct {
	StudentID   string    `json:"student_id" validate:"required"`
	OrderID     string    `json:"order_id" validate:"required"`
	ScheduledAt Timestamp `json:"scheduled_at"`
	Location    string    `json:"location" validate:"required,max=200"`
}

package models

import "time"

// NotificationPayload is the backend's notification document.
type NotificationPayload struct {
	ID        string    `json:"_id"`
	IsSent    bool      `json:"issent"`
	Message   string    `json:"message"`
	UserID    Ref       `json:"user_id"`
	CreatedAt Timestamp `json:"created_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	IsSent    bool      `json:"isSent"`
	Message   string    `json:"message"`
	User      Ref       `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p NotificationPayload) Normalize() Notification {
	return Notification{
		ID:        p.ID,
		IsSent:    p.IsSent,
		Message:   p.Message,
		User:      p.UserID,
		CreatedAt: p.CreatedAt.Time,
	}
}

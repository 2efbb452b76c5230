package api

import (
	"context"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Appointments struct {
	client *apiclient.Client
	logger *logrus.Logger
}

func (a *Appointments) List(ctx context.Context, page Page) ([]models.Appointment, error) {
	var appointments []models.Appointment
	req := apiclient.Request{Endpoint: endpoints.Appointments.List, Query: page.Query()}
	if err := fetch(ctx, a.client, req, &appointments, "Failed to fetch appointments"); err != nil {
		return nil, err
	}
	return clip(appointments, page), nil
}

func (a *Appointments) Get(ctx context.Context, id string) (models.Appointment, error) {
	var appointment models.Appointment
	if err := requireID("id", id); err != nil {
		return appointment, err
	}
	err := fetch(ctx, a.client, apiclient.Request{Endpoint: endpoints.Appointments.ByID.With(id)}, &appointment, "Appointment not found")
	return appointment, err
}

func (a *Appointments) Create(ctx context.Context, in models.CreateAppointment) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.ScheduledAt.IsZero() {
		return &ValidationError{Fields: map[string]string{"ScheduledAt": "This field is required"}}
	}

	a.logger.WithFields(logrus.Fields{
		"student_id":   in.StudentID,
		"order_id":     in.OrderID,
		"scheduled_at": in.ScheduledAt.Time,
	}).Info("Creating appointment")

	return send(ctx, a.client, apiclient.Request{Endpoint: endpoints.Appointments.Create, JSON: in})
}

func (a *Appointments) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	a.logger.WithField("appointment_id", id).Info("Deleting appointment")
	return send(ctx, a.client, apiclient.Request{Endpoint: endpoints.Appointments.Delete.With(id)})
}

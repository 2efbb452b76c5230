package api

import (
	"context"
	"fmt"
	"time"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Orders struct {
	client *apiclient.Client
	logger *logrus.Logger
}

// AdminOrders lists the orders visible to the signed-in admin.
func (o *Orders) AdminOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := fetch(ctx, o.client, apiclient.Request{Endpoint: endpoints.Orders.AdminOrders}, &orders, "No orders found")
	return orders, err
}

func (o *Orders) StudentOrders(ctx context.Context, studentID string) ([]models.Order, error) {
	var orders []models.Order
	if err := requireID("student_id", studentID); err != nil {
		return nil, err
	}
	err := fetch(ctx, o.client, apiclient.Request{Endpoint: endpoints.Orders.ByStudent.With(studentID)}, &orders, "No orders found")
	return orders, err
}

func (o *Orders) Accept(ctx context.Context, id string) error {
	return o.transition(ctx, endpoints.Orders.Accept, id, nil)
}

func (o *Orders) Reject(ctx context.Context, id string) error {
	return o.transition(ctx, endpoints.Orders.Reject, id, nil)
}

// MarkReady moves a printing order to ready. The pickup date is optional.
func (o *Orders) MarkReady(ctx context.Context, id string, appointment *time.Time) error {
	var body any
	if appointment != nil {
		ts := models.NewTimestamp(*appointment)
		body = models.MarkReadyRequest{AppointmentDate: &ts}
	}
	return o.transition(ctx, endpoints.Orders.Ready, id, body)
}

func (o *Orders) Deliver(ctx context.Context, id string) error {
	return o.transition(ctx, endpoints.Orders.Delivered, id, nil)
}

// Apply runs the backend call behind an admin order action.
func (o *Orders) Apply(ctx context.Context, id string, action models.OrderAction) error {
	switch action {
	case models.ActionAccept:
		return o.Accept(ctx, id)
	case models.ActionReject:
		return o.Reject(ctx, id)
	case models.ActionPrint:
		return o.MarkReady(ctx, id, nil)
	case models.ActionDeliver:
		return o.Deliver(ctx, id)
	default:
		return fmt.Errorf("unknown order action %q", action)
	}
}

func (o *Orders) transition(ctx context.Context, e endpoints.Endpoint, id string, body any) error {
	if err := requireID("id", id); err != nil {
		return err
	}

	o.logger.WithFields(logrus.Fields{
		"order_id": id,
		"endpoint": e.Path,
	}).Info("Transitioning order")

	return send(ctx, o.client, apiclient.Request{Endpoint: e.With(id), JSON: body})
}

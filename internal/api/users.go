package api

import (
	"context"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Users struct {
	client *apiclient.Client
	logger *logrus.Logger
}

func (u *Users) All(ctx context.Context, page Page) ([]models.User, error) {
	var users []models.User
	req := apiclient.Request{Endpoint: endpoints.Users.All, Query: page.Query()}
	if err := fetch(ctx, u.client, req, &users, "No users found"); err != nil {
		return nil, err
	}
	return clip(users, page), nil
}

func (u *Users) Students(ctx context.Context, page Page) ([]models.User, error) {
	var users []models.User
	req := apiclient.Request{Endpoint: endpoints.Users.Students, Query: page.Query()}
	if err := fetch(ctx, u.client, req, &users, "No students found"); err != nil {
		return nil, err
	}
	return clip(users, page), nil
}

func (u *Users) Get(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := requireID("id", id); err != nil {
		return user, err
	}
	err := fetch(ctx, u.client, apiclient.Request{Endpoint: endpoints.Users.ByID.With(id)}, &user, "User not found")
	return user, err
}

// AddAdmin promotes a user to admin of the given area.
func (u *Users) AddAdmin(ctx context.Context, id, placement string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	body := models.AddAdminRequest{Placement: placement}
	if err := validateStruct(body); err != nil {
		return err
	}

	u.logger.WithFields(logrus.Fields{
		"user_id":   id,
		"placement": placement,
	}).Info("Promoting user to admin")

	return send(ctx, u.client, apiclient.Request{Endpoint: endpoints.Users.AddAdmin.With(id), JSON: body})
}

func (u *Users) RemoveAdmin(ctx context.Context, id string) error {
	return u.action(ctx, endpoints.Users.RemoveAdmin, id, "Removing admin role")
}

func (u *Users) Block(ctx context.Context, id string) error {
	return u.action(ctx, endpoints.Users.Block, id, "Blocking user")
}

func (u *Users) Unblock(ctx context.Context, id string) error {
	return u.action(ctx, endpoints.Users.Unblock, id, "Unblocking user")
}

func (u *Users) action(ctx context.Context, e endpoints.Endpoint, id, msg string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	u.logger.WithField("user_id", id).Info(msg)
	return send(ctx, u.client, apiclient.Request{Endpoint: e.With(id)})
}

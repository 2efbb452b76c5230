package api

import (
	"context"
	"net/http"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Auth struct {
	client *apiclient.Client
	logger *logrus.Logger
}

// Login authenticates against the backend and returns the session token,
// taken from the response body or, failing that, from the session cookie.
func (a *Auth) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	if err := validateStruct(req); err != nil {
		return models.LoginResponse{}, err
	}

	a.logger.WithField("email", req.Email).Info("Logging in")

	resp, err := a.client.Do(ctx, apiclient.Request{Endpoint: endpoints.Auth.Login, JSON: req})
	if err != nil {
		return models.LoginResponse{}, err
	}

	var out models.LoginResponse
	if !resp.Empty() {
		if err := resp.Decode(&out); err != nil {
			return models.LoginResponse{}, err
		}
	}
	if out.AccessToken == "" {
		for _, c := range (&http.Response{Header: resp.Header}).Cookies() {
			if c.Name == apiclient.SessionCookie {
				out.AccessToken = c.Value
			}
		}
	}
	return out, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	return send(ctx, a.client, apiclient.Request{Endpoint: endpoints.Auth.Logout})
}

// Me returns the user owning the current session.
func (a *Auth) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := fetch(ctx, a.client, apiclient.Request{Endpoint: endpoints.Auth.Me}, &user, "User not found")
	return user, err
}

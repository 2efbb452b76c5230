// Package api maps each Lectio backend endpoint to one typed function.
// Functions issue exactly one call, never retry, and treat an empty
// payload as the resource not existing.
package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Set groups the resource APIs over one client.
type Set struct {
	Auth          *Auth
	Users         *Users
	Materials     *Materials
	Orders        *Orders
	Appointments  *Appointments
	Notifications *Notifications
	Analytics     *Analytics
}

func NewSet(client *apiclient.Client, logger *logrus.Logger) *Set {
	return &Set{
		Auth:          &Auth{client: client, logger: logger},
		Users:         &Users{client: client, logger: logger},
		Materials:     &Materials{client: client, logger: logger},
		Orders:        &Orders{client: client, logger: logger},
		Appointments:  &Appointments{client: client, logger: logger},
		Notifications: &Notifications{client: client, logger: logger},
		Analytics:     &Analytics{client: client, logger: logger},
	}
}

// Page is a skip/limit window over a list endpoint.
type Page struct {
	Skip  int
	Limit int
}

// NormalizePage clamps skip and limit to the range the backend accepts.
func NormalizePage(skip, limit int) Page {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Skip: skip, Limit: limit}
}

func (p Page) Query() url.Values {
	return url.Values{
		"skip":  {strconv.Itoa(p.Skip)},
		"limit": {strconv.Itoa(p.Limit)},
	}
}

// clip enforces the page size on responses that overshoot it.
func clip[T any](items []T, p Page) []T {
	if len(items) > p.Limit {
		return items[:p.Limit]
	}
	return items
}

// fetch issues req and decodes the payload into out. A missing payload
// becomes a not-found error carrying notFound as its message.
func fetch(ctx context.Context, client *apiclient.Client, req apiclient.Request, out any, notFound string) error {
	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Empty() {
		return apiclient.NotFound(notFound)
	}
	return resp.Decode(out)
}

// send issues a mutation whose response body is not needed.
func send(ctx context.Context, client *apiclient.Client, req apiclient.Request) error {
	_, err := client.Do(ctx, req)
	return err
}

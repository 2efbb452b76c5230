package api

import (
	"context"
	"encoding/json"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Notifications struct {
	client *apiclient.Client
	logger *logrus.Logger
}

// List returns the raw notification documents. Anything other than a JSON
// array is read as no notifications.
func (n *Notifications) List(ctx context.Context) ([]models.NotificationPayload, error) {
	resp, err := n.client.Do(ctx, apiclient.Request{Endpoint: endpoints.Notifications.List})
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if resp.Empty() || json.Unmarshal(resp.Body, &raw) != nil || len(raw) == 0 || raw[0] != '[' {
		n.logger.Debug("Notifications payload was not a list")
		return []models.NotificationPayload{}, nil
	}

	var payloads []models.NotificationPayload
	if err := resp.Decode(&payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

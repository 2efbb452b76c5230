package api

import (
	"context"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Analytics struct {
	client *apiclient.Client
	logger *logrus.Logger
}

func (a *Analytics) Dashboard(ctx context.Context) (models.DashboardAnalytics, error) {
	var out models.DashboardAnalytics
	err := fetch(ctx, a.client, apiclient.Request{Endpoint: endpoints.Dashboard.Analytics}, &out, "Analytics unavailable")
	return out, err
}

// Package queries is the read/mutate layer used by the console. Reads go
// through the query cache under a per-session scope; mutations issue one
// backend call and, on success, invalidate the families they affect and
// notify listeners.
package queries

import (
	"time"

	"github.com/lectio/admin-console/internal/api"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/cache"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/sirupsen/logrus"
)

// Families used as the first segment of cache keys.
const (
	FamilyCurrentUser   = "currentUser"
	FamilyUsers         = "users"
	FamilyStudents      = "students"
	FamilyUser          = "user"
	FamilyMaterials     = "materials"
	FamilyMaterial      = "material"
	FamilyOrders        = "orders"
	FamilyAppointments  = "appointments"
	FamilyAppointment   = "appointment"
	FamilyNotifications = "notifications"
	FamilyAnalytics     = "analytics"
)

const (
	PlaceholderImage     = "/placeholder-lfrkp.png"
	defaultLookupWorkers = 8
)

// AssetURL builds the address a browser uses to load a stored material
// file. kind is "image" or "file".
type AssetURL func(kind, fileID string) string

type Config struct {
	// LookupWorkers bounds the parallel user lookups of a fan-out read.
	LookupWorkers int
	AssetURL      AssetURL
}

type Service struct {
	api       *api.Set
	cache     *cache.Cache
	logger    *logrus.Logger
	assetURL  AssetURL
	workers   int
	listeners []Listener
	now       func() time.Time
}

func NewService(set *api.Set, client *apiclient.Client, c *cache.Cache, config Config, logger *logrus.Logger) *Service {
	if config.LookupWorkers <= 0 {
		config.LookupWorkers = defaultLookupWorkers
	}
	if config.AssetURL == nil {
		config.AssetURL = BackendAssetURL(client)
	}
	return &Service{
		api:      set,
		cache:    c,
		logger:   logger,
		assetURL: config.AssetURL,
		workers:  config.LookupWorkers,
		now:      time.Now,
	}
}

// BackendAssetURL points material files straight at the backend.
func BackendAssetURL(client *apiclient.Client) AssetURL {
	return func(kind, fileID string) string {
		if kind == "file" {
			return client.URL(endpoints.Materials.File.With(fileID))
		}
		return client.URL(endpoints.Materials.Image.With(fileID))
	}
}

// Subscribe registers l to be told about every successful mutation.
// It must be called before the service handles requests.
func (s *Service) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Service) Cache() *cache.Cache { return s.cache }

func (s *Service) API() *api.Set { return s.api }

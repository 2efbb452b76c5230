package circuitbreaker

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager hands out one breaker per backend route family, all sharing the
// same configuration.
type Manager struct {
	breakers map[string]*CircuitBreaker
	config   Config
	mutex    sync.RWMutex
	logger   *logrus.Logger
}

func NewManager(config Config, logger *logrus.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		logger:   logger,
	}
}

func (m *Manager) Get(name string) *CircuitBreaker {
	m.mutex.RLock()
	breaker, ok := m.breakers[name]
	m.mutex.RUnlock()
	if ok {
		return breaker
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if breaker, ok := m.breakers[name]; ok {
		return breaker
	}

	config := m.config
	config.Name = name
	breaker = New(config, m.logger)
	m.breakers[name] = breaker

	m.logger.WithFields(logrus.Fields{
		"circuit_breaker": name,
		"max_failures":    breaker.maxFailures,
		"timeout":         breaker.timeout.String(),
	}).Debug("Circuit breaker created")

	return breaker
}

// Execute runs fn through the breaker for family.
func (m *Manager) Execute(ctx context.Context, family string, fn func(ctx context.Context) error) error {
	return m.Get(family).Execute(ctx, fn)
}

func (m *Manager) AllMetrics() []Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	metrics := make([]Metrics, 0, len(m.breakers))
	for _, breaker := range m.breakers {
		metrics = append(metrics, breaker.Metrics())
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	return metrics
}

func (m *Manager) ResetAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, breaker := range m.breakers {
		breaker.Reset()
	}
	m.logger.Info("All circuit breakers reset")
}

package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestBreaker(maxFailures int, timeout time.Duration) (*CircuitBreaker, *time.Time) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cb := New(Config{
		Name:        "test",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		MaxRequests: 1,
	}, logger)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

var errBackend = errors.New("backend unavailable")

func fail(context.Context) error    { return errBackend }
func succeed(context.Context) error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errBackend) {
			t.Fatalf("attempt %d: expected backend error, got %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("expected ErrCircuitBreakerOpen, got %v", err)
	}
	if called {
		t.Error("function must not run while the breaker is open")
	}
	if got := cb.Metrics().TotalRejected; got != 1 {
		t.Errorf("expected 1 rejected call, got %d", got)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
	if got := cb.Metrics().Failures; got != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", got)
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name      string
		trial     func(context.Context) error
		wantState State
	}{
		{"trial call succeeds", succeed, StateClosed},
		{"trial call fails", fail, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(1, 30*time.Second)
			ctx := context.Background()

			_ = cb.Execute(ctx, fail)
			if cb.State() != StateOpen {
				t.Fatalf("expected StateOpen, got %s", cb.State())
			}

			*clock = clock.Add(31 * time.Second)
			_ = cb.Execute(ctx, tt.trial)

			if cb.State() != tt.wantState {
				t.Errorf("expected %s, got %s", tt.wantState, cb.State())
			}
		})
	}
}

func TestCallerCancellationIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("cancellation opened the breaker: %s", cb.State())
	}
	if got := cb.Metrics().TotalFailures; got != 0 {
		t.Errorf("expected no recorded failures, got %d", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cb := New(Config{MaxFailures: -1, Timeout: 0, MaxRequests: 0}, logger)

	if cb.name != "unnamed" {
		t.Errorf("expected name 'unnamed', got %q", cb.name)
	}
	if cb.maxFailures != 5 {
		t.Errorf("expected MaxFailures 5, got %d", cb.maxFailures)
	}
	if cb.timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", cb.timeout)
	}
	if cb.maxRequests != 1 {
		t.Errorf("expected MaxRequests 1, got %d", cb.maxRequests)
	}
}

func TestStateChangeCallback(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	changes := make(chan [2]State, 4)
	cb := New(Config{
		Name:        "callback",
		MaxFailures: 1,
		Timeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			changes <- [2]State{from, to}
		},
	}, logger)

	_ = cb.Execute(context.Background(), fail)

	select {
	case change := <-changes:
		if change[0] != StateClosed || change[1] != StateOpen {
			t.Errorf("unexpected transition %s -> %s", change[0], change[1])
		}
	case <-time.After(time.Second):
		t.Fatal("state change callback was not invoked")
	}
}

func TestConcurrentExecuteKeepsMetricsConsistent(t *testing.T) {
	cb, _ := newTestBreaker(1000, time.Minute)
	ctx := context.Background()

	const goroutines = 50
	const iterations = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if (i+j)%4 == 0 {
					_ = cb.Execute(ctx, fail)
				} else {
					_ = cb.Execute(ctx, succeed)
				}
			}
		}(i)
	}
	wg.Wait()

	m := cb.Metrics()
	if m.TotalRequests != goroutines*iterations {
		t.Errorf("expected %d requests, got %d", goroutines*iterations, m.TotalRequests)
	}
	if m.TotalRequests != m.TotalFailures+m.TotalSuccesses {
		t.Errorf("inconsistent metrics: requests=%d failures=%d successes=%d",
			m.TotalRequests, m.TotalFailures, m.TotalSuccesses)
	}
}

func TestManagerReusesBreakers(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	m := NewManager(Config{MaxFailures: 1, Timeout: time.Minute}, logger)

	_ = m.Execute(context.Background(), "orders", fail)

	if m.Get("orders").State() != StateOpen {
		t.Error("expected the orders breaker to be open")
	}
	if m.Get("users").State() != StateClosed {
		t.Error("a failing family must not open another family's breaker")
	}

	metrics := m.AllMetrics()
	if len(metrics) != 2 || metrics[0].Name != "orders" || metrics[1].Name != "users" {
		t.Errorf("unexpected metrics listing: %+v", metrics)
	}

	m.ResetAll()
	if m.Get("orders").State() != StateClosed {
		t.Error("ResetAll did not close the orders breaker")
	}
}

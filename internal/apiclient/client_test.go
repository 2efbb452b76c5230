package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lectio/admin-console/internal/circuitbreaker"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/", Timeout: 200 * time.Millisecond}, testLogger(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := New(Config{BaseURL: raw}, testLogger()); err == nil {
			t.Errorf("expected error for base url %q", raw)
		}
	}
}

func TestDoSendsQuerySessionAndJSON(t *testing.T) {
	var got struct {
		path, query, cookie, contentType string
		body                             map[string]string
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.contentType = r.Header.Get("Content-Type")
		if c, err := r.Cookie(SessionCookie); err == nil {
			got.cookie = c.Value
		}
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Write([]byte(`{"ok":true}`))
	}))

	ctx := WithSession(context.Background(), "token-123")
	resp, err := client.Do(ctx, Request{
		Endpoint: endpoints.Users.AddAdmin.With("u1"),
		Query:    url.Values{"skip": {"0"}, "limit": {"10"}},
		JSON:     map[string]string{"placement": "Algiers"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if got.path != "/users/add-admin/u1" {
		t.Errorf("unexpected path %q", got.path)
	}
	if got.query != "limit=10&skip=0" {
		t.Errorf("unexpected query %q", got.query)
	}
	if got.cookie != "token-123" {
		t.Errorf("expected session cookie to be forwarded, got %q", got.cookie)
	}
	if got.contentType != "application/json" {
		t.Errorf("unexpected content type %q", got.contentType)
	}
	if got.body["placement"] != "Algiers" {
		t.Errorf("unexpected body %v", got.body)
	}
}

func TestDoNormalizesErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantData    bool
	}{
		{"message field", http.StatusBadRequest, `{"message":"bad input"}`, "bad input", true},
		{"fastapi detail", http.StatusForbidden, `{"detail":"Insufficient permissions"}`, "Insufficient permissions", true},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`, "field required; value is not a valid email", true},
		{"plain text", http.StatusBadGateway, `upstream down`, defaultErrorMessage, true},
		{"empty body", http.StatusNotFound, ``, defaultErrorMessage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.Do(context.Background(), Request{Endpoint: endpoints.Users.All})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, apiErr.Message)
			}
			if (len(apiErr.Data) > 0) != tt.wantData {
				t.Errorf("unexpected data %s", apiErr.Data)
			}
			if !json.Valid(apiErr.Data) && len(apiErr.Data) > 0 {
				t.Errorf("data must be valid JSON, got %s", apiErr.Data)
			}
		})
	}
}

func TestForbiddenHelper(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"User is blocked"}`, http.StatusForbidden)
	}))

	_, err := client.Do(context.Background(), Request{Endpoint: endpoints.Users.All})
	if !IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if IsNotFound(err) || IsTimeout(err) {
		t.Error("forbidden error misclassified")
	}
}

func TestDoNormalizesTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	_, err := client.Do(context.Background(), Request{Endpoint: endpoints.Dashboard.Analytics})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 0 {
		t.Errorf("expected no status on timeout, got %d", apiErr.Status)
	}
	if !IsTimeout(err) {
		t.Errorf("expected timeout classification, got %v", err)
	}
}

func TestDoNormalizesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := New(Config{BaseURL: baseURL}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Do(context.Background(), Request{Endpoint: endpoints.Auth.Me})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 0 || apiErr.Message != "No response from server" {
		t.Errorf("unexpected normalized error %+v", apiErr)
	}
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusForbidden)

	manager := circuitbreaker.NewManager(circuitbreaker.Config{MaxFailures: 2, Timeout: time.Minute}, testLogger())
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}), WithBreaker(manager))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = client.Do(ctx, Request{Endpoint: endpoints.Orders.AdminOrders})
	}
	if manager.Get("orders").State() != circuitbreaker.StateClosed {
		t.Fatal("client errors must not open the breaker")
	}

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		_, _ = client.Do(ctx, Request{Endpoint: endpoints.Orders.AdminOrders})
	}
	before := hits.Load()

	_, err := client.Do(ctx, Request{Endpoint: endpoints.Orders.AdminOrders})
	if !errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if StatusOf(err) != 0 {
		t.Errorf("rejected call must carry no status, got %d", StatusOf(err))
	}
	if hits.Load() != before {
		t.Error("rejected call reached the backend")
	}
}

func TestResponseEmpty(t *testing.T) {
	for body, want := range map[string]bool{"": true, "  null ": true, "[]": false, "{}": false} {
		r := &Response{Body: []byte(body)}
		if r.Empty() != want {
			t.Errorf("Empty(%q) = %v, want %v", body, r.Empty(), want)
		}
	}
}

func TestNotFoundHelper(t *testing.T) {
	err := error(NotFound("No materials found"))
	if !IsNotFound(err) || !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("expected not-found classification for %v", err)
	}
	if StatusOf(err) != 0 {
		t.Errorf("empty payload must carry no status")
	}
}

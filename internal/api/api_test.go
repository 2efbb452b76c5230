package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestSet(t *testing.T, handler http.HandlerFunc) *Set {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: server.URL, Timeout: time.Second}, testLogger())
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	return NewSet(client, testLogger())
}

func strPtr(s string) *string { return &s }

func TestEncodeEditFormKeepsExistingAndAddsNewImages(t *testing.T) {
	body, contentType, err := EncodeEditForm(models.EditMaterial{
		ID:                "m1",
		Patch:             models.MaterialPatch{Description: strPtr("updated"), StudyYear: strPtr("3")},
		ExistingImageURLs: []string{"a", "b"},
		NewImages:         []models.Upload{{Filename: "c.png", ContentType: "image/png", Data: []byte("png")}},
	})
	if err != nil {
		t.Fatalf("EncodeEditForm: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/materials/m1", body)
	req.Header.Set("Content-Type", contentType)
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}

	if got := req.MultipartForm.Value["existing_image_urls"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("existing_image_urls = %v, want [a b]", got)
	}
	if got := req.MultipartForm.File["images"]; len(got) != 1 || got[0].Filename != "c.png" {
		t.Errorf("images = %v, want one part named c.png", got)
	}
	if _, ok := req.MultipartForm.Value["title"]; ok {
		t.Error("title should not be sent when absent from the patch")
	}
	if got := req.FormValue("year_study"); got != "3" {
		t.Errorf("year_study = %q, want 3", got)
	}
	if got := req.FormValue("remove_pdf"); got != "false" {
		t.Errorf("remove_pdf = %q, want false", got)
	}
	if _, ok := req.MultipartForm.File["file"]; ok {
		t.Error("file part should not be sent without a replacement")
	}
}

func TestEncodeCreateForm(t *testing.T) {
	body, contentType, err := EncodeCreateForm(models.CreateMaterial{
		Input: models.MaterialInput{
			Title: "Anatomy", Description: "notes", MaterialType: models.MaterialPolycopie,
			PriceDZD: 450.5, StudyYear: "2", Specialite: "medecine",
		},
		File:   models.Upload{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		Images: []models.Upload{{Filename: "1.jpg", Data: []byte("x")}, {Filename: "2.jpg", Data: []byte("y")}},
	})
	if err != nil {
		t.Fatalf("EncodeCreateForm: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/materials/", body)
	req.Header.Set("Content-Type", contentType)
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	if got := req.FormValue("price_dzd"); got != "450.5" {
		t.Errorf("price_dzd = %q", got)
	}
	if got := req.FormValue("study_year"); got != "2" {
		t.Errorf("study_year = %q", got)
	}
	if _, ok := req.MultipartForm.Value["module"]; ok {
		t.Error("empty module should be omitted")
	}
	files := req.MultipartForm.File["file"]
	if len(files) != 1 || files[0].Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("file part = %v", files)
	}
	if got := len(req.MultipartForm.File["images"]); got != 2 {
		t.Errorf("images = %d, want 2", got)
	}
}

func TestCreateMaterialValidatesBeforeSending(t *testing.T) {
	var calls int32
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	err := set.Materials.Create(context.Background(), models.CreateMaterial{
		Input: models.MaterialInput{Title: "t", Description: "d", MaterialType: "scroll", StudyYear: "1", Specialite: "s"},
		File:  models.Upload{Filename: "a.pdf", Data: []byte("x")},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["MaterialType"]; !ok {
		t.Errorf("expected MaterialType error, got %v", verr.Fields)
	}

	err = set.Materials.Create(context.Background(), models.CreateMaterial{
		Input: models.MaterialInput{Title: "t", Description: "d", MaterialType: "book", StudyYear: "1", Specialite: "s"},
	})
	if !errors.As(err, &verr) || verr.Fields["File"] == "" {
		t.Errorf("expected missing file error, got %v", err)
	}

	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("backend called %d times, want 0", calls)
	}
}

func TestEmptyPayloadIsNotFound(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	_, err := set.Users.Get(context.Background(), "u1")
	if !apiclient.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "User not found" {
		t.Errorf("message = %q", err.Error())
	}

	if _, err := set.Materials.List(context.Background(), NormalizePage(0, 10)); !apiclient.IsNotFound(err) {
		t.Errorf("expected not found for empty material list, got %v", err)
	}
}

func TestListSendsPageAndClipsResults(t *testing.T) {
	var query string
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[{"_id":"1"},{"_id":"2"},{"_id":"3"}]`))
	})

	users, err := set.Users.All(context.Background(), NormalizePage(5, 2))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if query != "limit=2&skip=5" {
		t.Errorf("query = %q", query)
	}
	if len(users) != 2 || users[0].ID != "1" {
		t.Errorf("users = %+v", users)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		skip, limit int
		want        Page
	}{
		{0, 0, Page{Skip: 0, Limit: DefaultLimit}},
		{-3, 20, Page{Skip: 0, Limit: 20}},
		{4, 1000, Page{Skip: 4, Limit: MaxLimit}},
	}
	for _, tt := range tests {
		if got := NormalizePage(tt.skip, tt.limit); got != tt.want {
			t.Errorf("NormalizePage(%d, %d) = %+v, want %+v", tt.skip, tt.limit, got, tt.want)
		}
	}
}

func TestLoginFallsBackToSessionCookie(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: apiclient.SessionCookie, Value: "tok"})
		w.Write([]byte(`{"message":"Login successful"}`))
	})

	resp, err := set.Auth.Login(context.Background(), models.LoginRequest{Email: "a@b.dz", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken != "tok" {
		t.Errorf("token = %q, want tok", resp.AccessToken)
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})
	_, err := set.Auth.Login(context.Background(), models.LoginRequest{Email: "nope", Password: "pw"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["Email"] == "" {
		t.Errorf("expected email validation error, got %v", err)
	}
}

func TestOrderActionsHitTransitionRoutes(t *testing.T) {
	var method, path, body string
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Write([]byte(`{"message":"ok"}`))
	})

	tests := []struct {
		action models.OrderAction
		want   string
	}{
		{models.ActionAccept, "/orders/admin/o1/accept"},
		{models.ActionReject, "/orders/admin/o1/reject"},
		{models.ActionPrint, "/orders/admin/o1/ready"},
		{models.ActionDeliver, "/orders/admin/o1/delivered"},
	}
	for _, tt := range tests {
		if err := set.Orders.Apply(context.Background(), "o1", tt.action); err != nil {
			t.Fatalf("Apply(%s): %v", tt.action, err)
		}
		if method != http.MethodPut || path != tt.want {
			t.Errorf("Apply(%s) sent %s %s, want PUT %s", tt.action, method, path, tt.want)
		}
	}

	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := set.Orders.MarkReady(context.Background(), "o1", &date); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if !strings.Contains(body, `"appointment_date":"2026-03-01T10:00:00Z"`) {
		t.Errorf("body = %s", body)
	}

	if err := set.Orders.Apply(context.Background(), "o1", "cancel"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestBackendErrorIsSurfacedOnce(t *testing.T) {
	var calls int32
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"Insufficient permissions"}`))
	})

	err := set.Users.Block(context.Background(), "u1")
	if !apiclient.IsForbidden(err) {
		t.Fatalf("expected 403, got %v", err)
	}
	if err.Error() != "Insufficient permissions" {
		t.Errorf("message = %q", err.Error())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNotificationsNonListIsEmpty(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"nothing"}`))
	})
	got, err := set.Notifications.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty slice", got)
	}
}

func TestDownloadKeepsContentType(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/materials/f1/get_image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8})
	})
	dl, err := set.Materials.Image(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if dl.ContentType != "image/jpeg" || len(dl.Data) != 2 {
		t.Errorf("download = %+v", dl)
	}
}

func TestCreateAppointmentRequiresSchedule(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})
	err := set.Appointments.Create(context.Background(), models.CreateAppointment{
		StudentID: "s1", OrderID: "o1", Location: "Library",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["ScheduledAt"] == "" {
		t.Errorf("expected ScheduledAt error, got %v", err)
	}
}

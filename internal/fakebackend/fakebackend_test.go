package fakebackend

import (
	"context"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lectio/admin-console/internal/api"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func setup(t *testing.T, opts ...apiclient.Option) (*Server, Demo, *api.Set) {
	t.Helper()
	backend := New("test-secret", testLogger())
	demo := backend.SeedDemo()

	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: server.URL, Timeout: time.Second}, testLogger(), opts...)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	return backend, demo, api.NewSet(client, testLogger())
}

func session(t *testing.T, backend *Server, userID string) context.Context {
	t.Helper()
	token, err := backend.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return apiclient.WithSession(context.Background(), token)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	jar, _ := cookiejar.New(nil)
	_, demo, set := setup(t, apiclient.WithCookieJar(jar))
	ctx := context.Background()

	resp, err := set.Auth.Login(ctx, models.LoginRequest{Email: "admin@lectio.dz", Password: "admin"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	me, err := set.Auth.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != demo.Admin.ID || !me.IsAdmin() {
		t.Errorf("me = %+v", me)
	}

	if _, err := set.Auth.Login(ctx, models.LoginRequest{Email: "admin@lectio.dz", Password: "wrong"}); !apiclient.IsUnauthorized(err) {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRoleChecks(t *testing.T) {
	backend, demo, set := setup(t)

	student := session(t, backend, demo.Students[0].ID)
	_, err := set.Users.All(student, api.NormalizePage(0, 10))
	if !apiclient.IsForbidden(err) || err.Error() != "Insufficient permissions" {
		t.Errorf("student listing users: %v", err)
	}

	admin := session(t, backend, demo.Admin.ID)
	if err := set.Users.Block(admin, demo.Students[0].ID); !apiclient.IsForbidden(err) {
		t.Errorf("admin blocking user: %v", err)
	}

	root := session(t, backend, demo.SuperAdmin.ID)
	if err := set.Users.Block(root, demo.Admin.ID); err != nil {
		t.Fatalf("Block: %v", err)
	}
	_, err = set.Orders.AdminOrders(admin)
	if !apiclient.IsForbidden(err) || err.Error() != "User is blocked" {
		t.Errorf("blocked admin: %v", err)
	}

	if _, err := set.Auth.Me(context.Background()); !apiclient.IsUnauthorized(err) {
		t.Errorf("anonymous me: %v", err)
	}
}

func TestOrderTransitions(t *testing.T) {
	backend, demo, set := setup(t)
	ctx := session(t, backend, demo.Admin.ID)
	pending, printing := demo.Orders[0].ID, demo.Orders[1].ID

	tests := []struct {
		name    string
		id      string
		action  models.OrderAction
		wantErr bool
		want    models.OrderStatus
	}{
		{"deliver pending", pending, models.ActionDeliver, true, models.OrderPending},
		{"accept pending", pending, models.ActionAccept, false, models.OrderPrinting},
		{"accept twice", pending, models.ActionAccept, true, models.OrderPrinting},
		{"print printing", printing, models.ActionPrint, false, models.OrderReady},
		{"deliver ready", printing, models.ActionDeliver, false, models.OrderDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := set.Orders.Apply(ctx, tt.id, tt.action)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Apply err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apiclient.StatusOf(err) != 400 {
				t.Errorf("status = %d, want 400", apiclient.StatusOf(err))
			}
			got, _ := backend.Order(tt.id)
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s", got.Status, tt.want)
			}
		})
	}
}

func TestMaterialUploadAndEdit(t *testing.T) {
	backend, demo, set := setup(t)
	ctx := session(t, backend, demo.Admin.ID)

	err := set.Materials.Create(ctx, models.CreateMaterial{
		Input: models.MaterialInput{Title: "Biochimie", Description: "TD", MaterialType: models.MaterialPolycopie,
			PriceDZD: 300, StudyYear: "2", Specialite: "pharmacie"},
		File: models.Upload{Filename: "bio.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		Images: []models.Upload{
			{Filename: "a.png", ContentType: "image/png", Data: []byte("a")},
			{Filename: "b.png", ContentType: "image/png", Data: []byte("b")},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := set.Materials.List(ctx, api.NormalizePage(0, 10))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	created := list[len(list)-1]
	if created.Title != "Biochimie" || len(created.ImageURLs) != 2 || created.PDFURL == "" {
		t.Fatalf("created = %+v", created)
	}

	pdf, err := set.Materials.File(ctx, created.PDFURL)
	if err != nil || pdf.ContentType != "application/pdf" {
		t.Errorf("File = %+v, %v", pdf, err)
	}

	title := "Biochimie 2"
	err = set.Materials.Edit(ctx, models.EditMaterial{
		ID:                created.ID,
		Patch:             models.MaterialPatch{Title: &title},
		ExistingImageURLs: created.ImageURLs[:1],
		NewImages:         []models.Upload{{Filename: "c.png", ContentType: "image/png", Data: []byte("c")}},
		RemovePDF:         true,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	got, err := set.Materials.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != title || got.Description != "TD" {
		t.Errorf("fields after edit = %+v", got)
	}
	if len(got.ImageURLs) != 2 || got.ImageURLs[0] != created.ImageURLs[0] {
		t.Errorf("images after edit = %v", got.ImageURLs)
	}
	if got.PDFURL != "" {
		t.Errorf("pdf should be removed, got %q", got.PDFURL)
	}
}

func TestPaginationAndCalls(t *testing.T) {
	backend, demo, set := setup(t)
	ctx := session(t, backend, demo.Admin.ID)

	users, err := set.Users.All(ctx, api.NormalizePage(1, 2))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len = %d, want 2", len(users))
	}
	students, err := set.Users.Students(ctx, api.NormalizePage(0, 10))
	if err != nil {
		t.Fatalf("Students: %v", err)
	}
	if len(students) != len(demo.Students) {
		t.Errorf("students = %d, want %d", len(students), len(demo.Students))
	}
	if backend.Calls("users.all") != 1 || backend.Calls("users.students") != 1 {
		t.Errorf("calls = %d/%d", backend.Calls("users.all"), backend.Calls("users.students"))
	}
}

func TestAnalytics(t *testing.T) {
	backend, demo, set := setup(t)
	ctx := session(t, backend, demo.Admin.ID)

	got, err := set.Analytics.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got.TotalUsers != 4 || got.TotalAvailableMaterials != 2 || got.TotalPendingOrders != 1 {
		t.Errorf("totals = %+v", got)
	}
	if len(got.OrderStatusPercentages) != 2 || got.OrderStatusPercentages[0].Percentage != 50 {
		t.Errorf("status percentages = %+v", got.OrderStatusPercentages)
	}
	if len(got.MonthlyRevenue) != 1 || got.MonthlyRevenue[0].Revenue != 4100 {
		t.Errorf("monthly revenue = %+v", got.MonthlyRevenue)
	}
}

package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/config"
	"immoflow/store"
	"immoflow/store/memory"
	"immoflow/utils"
)

func newApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()
	remote := memory.New()
	_ = remote.Seed("users", store.Row{"id": "u1", "name": "Carlos", "active": true})

	l := logrus.New()
	l.SetOutput(io.Discard)
	app := fiber.New()
	SetupRoutes(app, Deps{Config: cfg, Store: remote, SessionStore: remote, Logger: logrus.NewEntry(l)})
	return app
}

func status(t *testing.T, app *fiber.App, method, path string, header map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	app := newApp(t, config.Config{})
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Errorf("timestamp %q: %v", body["timestamp"], err)
	}
}

func TestAPIKeyGuardsFacade(t *testing.T) {
	app := newApp(t, config.Config{APIKey: "bot-key", RateLimitMax: 100})

	if got := status(t, app, "GET", "/api/users/available", nil); got != fiber.StatusUnauthorized {
		t.Errorf("without key: %d", got)
	}
	if got := status(t, app, "GET", "/api/users/available", map[string]string{"X-API-Key": "bot-key"}); got != fiber.StatusOK {
		t.Errorf("with key: %d", got)
	}
	if got := status(t, app, "GET", "/health", nil); got != fiber.StatusOK {
		t.Errorf("health needs no key: %d", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := newApp(t, config.Config{})
	if got := status(t, app, "GET", "/nope", nil); got != fiber.StatusNotFound {
		t.Errorf("status %d", got)
	}
}

func TestDashboardRoutes(t *testing.T) {
	disabled := newApp(t, config.Config{})
	if got := status(t, disabled, "POST", "/dashboard/media", nil); got != fiber.StatusNotFound {
		t.Errorf("dashboard mounted without secret: %d", got)
	}

	app := newApp(t, config.Config{SessionSecret: "s3cret"})
	if got := status(t, app, "POST", "/dashboard/media", nil); got != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated upload: %d", got)
	}

	token, err := utils.GenerateSessionToken("u1", "ejecutivo", "s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}
	if got := status(t, app, "POST", "/dashboard/media", auth); got != fiber.StatusServiceUnavailable {
		t.Errorf("upload without storage: %d", got)
	}
	if got := status(t, app, "GET", "/ws/dashboard", auth); got != fiber.StatusUpgradeRequired {
		t.Errorf("plain GET on websocket route: %d", got)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Meru-dog/study-group-bot/internal/models"
	"github.com/Meru-dog/study-group-bot/internal/services"
	"github.com/Meru-dog/study-group-bot/internal/sheets"
	"github.com/Meru-dog/study-group-bot/internal/state"
)

type downStore struct{}

func (downStore) Load(ctx context.Context) (*models.DailyRecord, error) { return nil, nil }
func (downStore) Save(ctx context.Context, rec *models.DailyRecord) error {
	return errors.New("unreachable")
}
func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }
func (downStore) Close() error                   { return nil }

func TestHealthzHealthy(t *testing.T) {
	store, err := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	app := fiber.New()
	handler := NewHealthHandler(store, sheets.NewNoopRepository(), services.NewConnectionManager())
	handler.SetSlackVerified(time.Date(2024, 4, 1, 8, 59, 0, 0, time.UTC))
	app.Get("/healthz", handler.Handle)

	resp, _ := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status     string `json:"status"`
		Components struct {
			State  string `json:"state"`
			Sheets string `json:"sheets"`
			Slack  string `json:"slack"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", body.Status)
	}
	if body.Components.State != "ok" {
		t.Errorf("Expected state ok, got %s", body.Components.State)
	}
	if body.Components.Sheets != "disabled" {
		t.Errorf("Expected sheets backend name, got %s", body.Components.Sheets)
	}
	if body.Components.Slack != "token verified 2024-04-01T08:59:00Z" {
		t.Errorf("Expected slack verification report, got %q", body.Components.Slack)
	}
}

func TestHealthzDegradedWhenStateDown(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(downStore{}, sheets.NewNoopRepository(), services.NewConnectionManager())
	app.Get("/healthz", handler.Handle)

	resp, _ := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("Expected degraded, got %s", body.Status)
	}
}

type fixedTicks map[string]time.Time

func (f fixedTicks) NextRuns() map[string]time.Time { return f }

func TestHealthzReportsScheduledTicks(t *testing.T) {
	store, err := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	app := fiber.New()
	handler := NewHealthHandler(store, sheets.NewNoopRepository(), services.NewConnectionManager())
	handler.SetTickSource(fixedTicks{
		"announce": time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	})
	app.Get("/healthz", handler.Handle)

	resp, _ := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Components struct {
			Scheduler map[string]string `json:"scheduler"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got := body.Components.Scheduler["announce"]; got != "2024-04-01T09:00:00Z" {
		t.Errorf("Expected announce next run in report, got %q", got)
	}
}

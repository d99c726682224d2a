package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}

	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil record for missing file, got %+v", rec)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}
	ctx := context.Background()

	rec := models.NewDailyRecord("2024/04/05")
	rec.Announcement = &models.MessageRef{Channel: "C123", TS: "1712300000.000100"}
	rec.Phase = models.PhaseAnnounced
	rec.Attendees["U1"] = models.AttendanceEntry{Mode: models.ModeInPerson, LastUpdatedAt: models.EventToken{Seconds: 1712300500, Micros: 100}}
	rec.Presenters = []models.PresenterCandidate{{UserID: "U1", RequestedAt: models.EventToken{Seconds: 1712300600}, Active: true}}
	rec.Topics["U1"] = "ジェネリクス"

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Expected no save error, got %v", err)
	}

	back, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Expected no load error, got %v", err)
	}
	if back == nil {
		t.Fatal("Expected a record back")
	}
	if back.Date != rec.Date || back.Phase != rec.Phase {
		t.Errorf("Expected %s/%s, got %s/%s", rec.Date, rec.Phase, back.Date, back.Phase)
	}
	if !back.Announcement.Matches("C123", "1712300000.000100") {
		t.Errorf("Expected announcement preserved, got %+v", back.Announcement)
	}
	if back.Attendees["U1"] != rec.Attendees["U1"] {
		t.Errorf("Expected attendee preserved, got %+v", back.Attendees["U1"])
	}
	if back.Topics["U1"] != "ジェネリクス" {
		t.Errorf("Expected topic preserved, got %q", back.Topics["U1"])
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}
	ctx := context.Background()

	first := models.NewDailyRecord("2024/04/03")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Expected no save error, got %v", err)
	}

	second := models.NewDailyRecord("2024/04/05")
	second.Phase = models.PhaseStarted
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Expected no save error, got %v", err)
	}

	back, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Expected no load error, got %v", err)
	}
	if back.Date != "2024/04/05" || back.Phase != models.PhaseStarted {
		t.Errorf("Expected latest record, got %s/%s", back.Date, back.Phase)
	}
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}

	if err := store.Save(context.Background(), models.NewDailyRecord("2024/04/05")); err != nil {
		t.Fatalf("Expected no save error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "state.json.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temp file to be renamed away")
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "var", "data", "state.json")
	store, err := NewFileStore(nested)
	if err != nil {
		t.Fatalf("Expected parent directories to be created, got %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to pass, got %v", err)
	}
}

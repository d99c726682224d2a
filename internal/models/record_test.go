package models

import (
	"encoding/json"
	"testing"
)

func TestAttendanceModeLabel(t *testing.T) {
	tests := []struct {
		mode AttendanceMode
		want string
	}{
		{ModeInPerson, "対面"},
		{ModeOnline, "オンライン"},
		{ModeAbsent, "欠席"},
		{AttendanceMode(""), ""},
	}

	for _, tt := range tests {
		if got := tt.mode.Label(); got != tt.want {
			t.Errorf("Expected label %q for %q, got %q", tt.want, tt.mode, got)
		}
	}
}

func TestMessageRefMatches(t *testing.T) {
	ref := &MessageRef{Channel: "C123", TS: "1712300000.000100"}

	if !ref.Matches("C123", "1712300000.000100") {
		t.Error("Expected ref to match its own channel and ts")
	}
	if ref.Matches("C999", "1712300000.000100") {
		t.Error("Expected ref to reject a different channel")
	}
	if ref.Matches("C123", "1712300000.000200") {
		t.Error("Expected ref to reject a different ts")
	}

	var nilRef *MessageRef
	if nilRef.Matches("C123", "1712300000.000100") {
		t.Error("Expected nil ref to never match")
	}
}

func TestDailyRecordClone(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Announcement = &MessageRef{Channel: "C123", TS: "1712300000.000100"}
	rec.Phase = PhaseAnnounced
	rec.Attendees["U1"] = AttendanceEntry{Mode: ModeInPerson, LastUpdatedAt: EventToken{10, 0}}
	rec.Presenters = []PresenterCandidate{{UserID: "U1", RequestedAt: EventToken{11, 0}, Active: true}}
	rec.Topics["U1"] = "Goのスライス"

	clone := rec.Clone()

	clone.Attendees["U2"] = AttendanceEntry{Mode: ModeOnline}
	clone.Topics["U1"] = "変更後"
	clone.Presenters[0].Active = false
	clone.Announcement.TS = "changed"

	if _, ok := rec.Attendees["U2"]; ok {
		t.Error("Expected clone attendee writes to not reach the original")
	}
	if rec.Topics["U1"] != "Goのスライス" {
		t.Errorf("Expected original topic unchanged, got %q", rec.Topics["U1"])
	}
	if !rec.Presenters[0].Active {
		t.Error("Expected original presenter unchanged")
	}
	if rec.Announcement.TS != "1712300000.000100" {
		t.Errorf("Expected original announcement unchanged, got %q", rec.Announcement.TS)
	}
}

func TestActivePresentersOrdering(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Presenters = []PresenterCandidate{
		{UserID: "U3", RequestedAt: EventToken{30, 0}, Active: false},
		{UserID: "U1", RequestedAt: EventToken{10, 0}, Active: true},
		{UserID: "U2", RequestedAt: EventToken{20, 0}, Active: true},
	}

	active := rec.ActivePresenters()
	if len(active) != 2 {
		t.Fatalf("Expected 2 active presenters, got %d", len(active))
	}
	if active[0].UserID != "U1" || active[1].UserID != "U2" {
		t.Errorf("Expected order [U1 U2], got [%s %s]", active[0].UserID, active[1].UserID)
	}

	if !rec.IsActivePresenter("U1") {
		t.Error("Expected U1 to be an active presenter")
	}
	if rec.IsActivePresenter("U3") {
		t.Error("Expected U3 to not be active")
	}
	if rec.IsActivePresenter("U9") {
		t.Error("Expected unknown user to not be active")
	}
}

func TestUsersByModeOrder(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Attendees["U2"] = AttendanceEntry{Mode: ModeInPerson, LastUpdatedAt: EventToken{20, 0}}
	rec.Attendees["U1"] = AttendanceEntry{Mode: ModeInPerson, LastUpdatedAt: EventToken{10, 0}}
	rec.Attendees["U3"] = AttendanceEntry{Mode: ModeOnline, LastUpdatedAt: EventToken{5, 0}}

	inPerson := rec.UsersByMode(ModeInPerson)
	if len(inPerson) != 2 || inPerson[0] != "U1" || inPerson[1] != "U2" {
		t.Errorf("Expected [U1 U2] in declaration order, got %v", inPerson)
	}

	online := rec.UsersByMode(ModeOnline)
	if len(online) != 1 || online[0] != "U3" {
		t.Errorf("Expected [U3], got %v", online)
	}

	if absent := rec.UsersByMode(ModeAbsent); len(absent) != 0 {
		t.Errorf("Expected no absent users, got %v", absent)
	}
}

func TestRowFor(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Attendees["U1"] = AttendanceEntry{Mode: ModeInPerson, LastUpdatedAt: EventToken{10, 0}}
	rec.Presenters = []PresenterCandidate{
		{UserID: "U1", RequestedAt: EventToken{11, 0}, Active: true},
		{UserID: "U2", RequestedAt: EventToken{12, 0}, Active: false},
	}
	rec.Topics["U1"] = "テスト駆動開発"

	row := rec.RowFor("U1")
	if row.Mode != ModeInPerson {
		t.Errorf("Expected mode %s, got %s", ModeInPerson, row.Mode)
	}
	if !row.Presenter {
		t.Error("Expected U1 row to carry the presenter flag")
	}
	if row.Topic != "テスト駆動開発" {
		t.Errorf("Expected topic carried, got %q", row.Topic)
	}

	row2 := rec.RowFor("U2")
	if row2.Presenter {
		t.Error("Expected inactive candidate to not carry the presenter flag")
	}
	if row2.Mode != "" {
		t.Errorf("Expected unclassified mode, got %q", row2.Mode)
	}
	if row2.Topic != "" {
		t.Errorf("Expected no topic for inactive candidate, got %q", row2.Topic)
	}
}

func TestSheetRowPresenterCell(t *testing.T) {
	if got := (SheetRow{Presenter: true}).PresenterCell(); got != "○" {
		t.Errorf("Expected ○, got %q", got)
	}
	if got := (SheetRow{}).PresenterCell(); got != "" {
		t.Errorf("Expected empty cell, got %q", got)
	}
}

func TestDailyRecordJSONRoundTrip(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Announcement = &MessageRef{Channel: "C123", TS: "1712300000.000100"}
	rec.Phase = PhaseAnnounced
	rec.Attendees["U1"] = AttendanceEntry{Mode: ModeAbsent, LastUpdatedAt: EventToken{1712300500, 100}}
	rec.Presenters = []PresenterCandidate{{UserID: "U1", RequestedAt: EventToken{1712300600, 0}, Active: true}}
	rec.Topics["U1"] = "並行処理"

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Expected no marshal error, got %v", err)
	}

	var back DailyRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Expected no unmarshal error, got %v", err)
	}
	back.EnsureMaps()

	if back.Date != rec.Date || back.Phase != rec.Phase {
		t.Errorf("Expected date/phase %s/%s, got %s/%s", rec.Date, rec.Phase, back.Date, back.Phase)
	}
	if back.Attendees["U1"] != rec.Attendees["U1"] {
		t.Errorf("Expected attendee entry %v, got %v", rec.Attendees["U1"], back.Attendees["U1"])
	}
	if len(back.Presenters) != 1 || back.Presenters[0] != rec.Presenters[0] {
		t.Errorf("Expected presenters %v, got %v", rec.Presenters, back.Presenters)
	}
	if back.Topics["U1"] != "並行処理" {
		t.Errorf("Expected topic preserved, got %q", back.Topics["U1"])
	}
}

func TestEnsureMapsOnEmptyRecord(t *testing.T) {
	var rec DailyRecord
	rec.EnsureMaps()

	if rec.Attendees == nil || rec.Topics == nil {
		t.Error("Expected maps to be initialized")
	}
	if rec.Phase != PhaseIdle {
		t.Errorf("Expected phase %s, got %s", PhaseIdle, rec.Phase)
	}
}

func TestSnapshotGrouping(t *testing.T) {
	rec := NewDailyRecord("2024/04/05")
	rec.Announcement = &MessageRef{Channel: "C123", TS: "1712300000.000100"}
	rec.Phase = PhaseAnnounced
	rec.Attendees["U1"] = AttendanceEntry{Mode: ModeOnline, LastUpdatedAt: EventToken{10, 0}}
	rec.Attendees["U2"] = AttendanceEntry{Mode: ModeInPerson, LastUpdatedAt: EventToken{20, 0}}
	rec.Presenters = []PresenterCandidate{
		{UserID: "U2", RequestedAt: EventToken{30, 0}, Active: true},
		{UserID: "U1", RequestedAt: EventToken{40, 0}, Active: true},
	}
	rec.Topics["U2"] = "gRPC入門"

	snap := rec.Snapshot()

	if !snap.Announced {
		t.Error("Expected snapshot to report announced")
	}
	if len(snap.Attendees) != 2 {
		t.Fatalf("Expected 2 attendees, got %d", len(snap.Attendees))
	}
	// In-person group renders before online.
	if snap.Attendees[0].UserID != "U2" || snap.Attendees[0].Mode != ModeInPerson {
		t.Errorf("Expected U2 in-person first, got %+v", snap.Attendees[0])
	}
	if len(snap.Presenters) != 2 {
		t.Fatalf("Expected 2 presenters, got %d", len(snap.Presenters))
	}
	if snap.Presenters[0].Topic != "gRPC入門" {
		t.Errorf("Expected topic on active presenter, got %q", snap.Presenters[0].Topic)
	}
}

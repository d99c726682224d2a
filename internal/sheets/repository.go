// Package sheets persists per-participant attendance rows to a tabular
// backend. The in-memory day record stays authoritative; backends only
// mirror it, one row per (date, user).
package sheets

import (
	"context"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// WorksheetName is the tab all backends write to.
const WorksheetName = "出席管理"

var (
	// Headers is the current six-column layout.
	Headers = []string{"日付", "参加者", "対面/オンライン", "発表の有無", "発表テーマ", "SlackユーザーID"}

	// LegacyHeaders is the five-column layout older sheets used before
	// rows carried the Slack user ID. Detected and upgraded in place.
	LegacyHeaders = []string{"日付", "参加者", "対面/オンライン", "発表の有無", "発表テーマ"}
)

// Repository mirrors attendance rows to one tabular store.
type Repository interface {
	// EnsureHeaders creates the worksheet if needed and upgrades legacy
	// header rows to the current layout.
	EnsureHeaders(ctx context.Context) error

	// Upsert writes the full row for (row.Date, row.UserID), replacing an
	// existing row or appending a new one.
	Upsert(ctx context.Context, row models.SheetRow) error

	// Name identifies the backend in logs and health reports.
	Name() string
}

// rowCells renders a row in worksheet column order A through F.
func rowCells(row models.SheetRow) []interface{} {
	return []interface{}{
		row.Date,
		row.DisplayName,
		row.Mode.Label(),
		row.PresenterCell(),
		row.Topic,
		row.UserID,
	}
}

// headerKind classifies a worksheet's first row.
type headerKind int

const (
	headerEmpty headerKind = iota
	headerCurrent
	headerLegacy
	headerUnknown
)

func classifyHeader(row []string) headerKind {
	// Trailing blank cells are layout noise, not data.
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	if len(row) == 0 {
		return headerEmpty
	}
	if equalRow(row, Headers) {
		return headerCurrent
	}
	if equalRow(row, LegacyHeaders) {
		return headerLegacy
	}
	return headerUnknown
}

func equalRow(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

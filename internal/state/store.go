// Package state persists today's DailyRecord as a single durable document so
// the bot recovers its day after a restart or redeploy.
package state

import (
	"context"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// Store is the durable home of the current day's record.
type Store interface {
	// Load returns the persisted record, or nil when nothing has been saved yet.
	Load(ctx context.Context) (*models.DailyRecord, error)
	// Save durably replaces the persisted record.
	Save(ctx context.Context, rec *models.DailyRecord) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

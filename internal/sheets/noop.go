package sheets

import (
	"context"
	"log"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// NoopRepository drops every row. Used when no spreadsheet is configured so
// the rest of the bot keeps working without a tabular mirror.
type NoopRepository struct{}

func NewNoopRepository() *NoopRepository {
	log.Printf("📊 [SHEETS] No spreadsheet configured, row sync disabled")
	return &NoopRepository{}
}

func (r *NoopRepository) EnsureHeaders(ctx context.Context) error {
	return nil
}

func (r *NoopRepository) Upsert(ctx context.Context, row models.SheetRow) error {
	log.Printf("📊 [SHEETS] Sync disabled, dropping row for %s on %s", row.UserID, row.Date)
	return nil
}

func (r *NoopRepository) Name() string {
	return "disabled"
}

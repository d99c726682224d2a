package engine

import (
	"context"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// Lifecycle transitions. The record moves idle → announced → summarized →
// started within one date; announce on a new date discards the old record.
// Each transition validates its precondition under the record lock, so a
// duplicate tick surfaces as ErrAlreadyAnnounced / ErrAlreadyDone instead of
// repeating side effects.

// CanAnnounce reports whether an announce for the date still needs to post.
func (e *Engine) CanAnnounce(date string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Date != date || e.rec.Announcement == nil
}

// BeginDay installs a fresh record for the date with the posted announcement
// ref. Declarations from any previous date are gone afterwards.
func (e *Engine) BeginDay(ctx context.Context, date string, ref models.MessageRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Date == date && e.rec.Announcement != nil {
		return ErrAlreadyAnnounced
	}

	rec := models.NewDailyRecord(date)
	rec.Announcement = &ref
	rec.Phase = models.PhaseAnnounced
	e.rec = rec
	return e.persist(ctx)
}

// MarkSummarized moves announced → summarized.
func (e *Engine) MarkSummarized(ctx context.Context, date string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Date != date || e.rec.Announcement == nil {
		return ErrNoAnnouncement
	}
	if e.rec.Phase != models.PhaseAnnounced {
		return ErrAlreadyDone
	}
	e.rec.Phase = models.PhaseSummarized
	return e.persist(ctx)
}

// MarkStarted moves announced or summarized → started. A day can start
// without a summary when the summarize tick was missed.
func (e *Engine) MarkStarted(ctx context.Context, date string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Date != date || e.rec.Announcement == nil {
		return ErrNoAnnouncement
	}
	switch e.rec.Phase {
	case models.PhaseAnnounced, models.PhaseSummarized:
		e.rec.Phase = models.PhaseStarted
		return e.persist(ctx)
	default:
		return ErrAlreadyDone
	}
}

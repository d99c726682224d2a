// Package engine holds the attendance core: one mutex-guarded DailyRecord,
// token-ordered command application, and the daily lifecycle transitions.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Meru-dog/study-group-bot/internal/models"
	"github.com/Meru-dog/study-group-bot/internal/state"
)

// Engine owns today's DailyRecord. Every mutation happens under one
// exclusive lock and is written to the durable store inside the same
// critical section, so an acknowledged event survives a restart. Slow
// external work (sheet writes, posts) never runs under the lock; it is
// driven by the RowUpdate intents the Apply methods return.
type Engine struct {
	mu    sync.Mutex
	rec   *models.DailyRecord
	store state.Store
}

// New wraps a previously loaded record, or starts empty when rec is nil.
func New(store state.Store, rec *models.DailyRecord) *Engine {
	if rec == nil {
		rec = models.NewDailyRecord("")
	}
	rec.EnsureMaps()
	return &Engine{store: store, rec: rec}
}

// Snapshot returns a deep copy of the current record, safe to read without
// the lock.
func (e *Engine) Snapshot() *models.DailyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone()
}

// AnnouncementRef returns a copy of the current announcement ref, or nil
// when none is posted.
func (e *Engine) AnnouncementRef() *models.MessageRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Announcement == nil {
		return nil
	}
	ref := *e.rec.Announcement
	return &ref
}

// Apply runs one normalized command against the record and returns the
// sheet-row intents to flush after the lock is released. A nil update list
// with a nil error means the command changed nothing. When the durable write
// fails the in-memory mutation stands and the intents are returned alongside
// the error; the next successful write catches the store up.
func (e *Engine) Apply(ctx context.Context, cmd models.Command) ([]models.RowUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var updates []models.RowUpdate
	var err error
	switch c := cmd.(type) {
	case models.SetAttendanceCommand:
		updates, err = e.applySetAttendance(c)
	case models.TogglePresenterCommand:
		updates, err = e.applyTogglePresenter(c)
	case models.SetTopicCommand:
		updates, err = e.applySetTopic(c)
	default:
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, nil
	}
	if err := e.persist(ctx); err != nil {
		return updates, err
	}
	return updates, nil
}

// applySetAttendance keeps the entry of whichever event carries the newest
// token. A removal only clears the entry when it names the stored mode and
// nothing newer has been recorded.
func (e *Engine) applySetAttendance(cmd models.SetAttendanceCommand) ([]models.RowUpdate, error) {
	entry, exists := e.rec.Attendees[cmd.UserID]

	if cmd.Added {
		if exists && !entry.LastUpdatedAt.Before(cmd.Token) {
			return nil, ErrStaleEvent
		}
		e.rec.Attendees[cmd.UserID] = models.AttendanceEntry{Mode: cmd.Mode, LastUpdatedAt: cmd.Token}
		return []models.RowUpdate{e.rec.RowFor(cmd.UserID)}, nil
	}

	if !exists || entry.Mode != cmd.Mode {
		// Removing a reaction that is not the one in effect.
		return nil, nil
	}
	if entry.LastUpdatedAt.After(cmd.Token) {
		return nil, ErrStaleEvent
	}
	delete(e.rec.Attendees, cmd.UserID)
	return []models.RowUpdate{e.rec.RowFor(cmd.UserID)}, nil
}

// applyTogglePresenter maintains the enrollment queue and reassigns the
// active slots afterwards.
func (e *Engine) applyTogglePresenter(cmd models.TogglePresenterCommand) ([]models.RowUpdate, error) {
	if cmd.Added {
		for _, c := range e.rec.Presenters {
			if c.UserID == cmd.UserID {
				return nil, nil
			}
		}
		e.rec.Presenters = append(e.rec.Presenters, models.PresenterCandidate{
			UserID:      cmd.UserID,
			RequestedAt: cmd.Token,
		})
		return e.recomputeActivation(), nil
	}

	idx := -1
	for i, c := range e.rec.Presenters {
		if c.UserID == cmd.UserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}
	if !e.rec.Presenters[idx].RequestedAt.Before(cmd.Token) {
		// A redelivered removal must not evict a newer re-enrollment.
		return nil, ErrStaleEvent
	}

	e.rec.Presenters = append(e.rec.Presenters[:idx], e.rec.Presenters[idx+1:]...)
	delete(e.rec.Topics, cmd.UserID)

	updates := e.recomputeActivation()
	updates = append(updates, e.rec.RowFor(cmd.UserID))
	return updates, nil
}

// applySetTopic overwrites the topic of an active presenter.
func (e *Engine) applySetTopic(cmd models.SetTopicCommand) ([]models.RowUpdate, error) {
	if !e.rec.IsActivePresenter(cmd.UserID) {
		return nil, ErrNotAPresenter
	}
	e.rec.Topics[cmd.UserID] = cmd.Topic
	return []models.RowUpdate{e.rec.RowFor(cmd.UserID)}, nil
}

// recomputeActivation orders the queue by enrollment token, grants the
// earliest candidates the active slots and clears the topics of anyone
// demoted. Returns intents for every participant whose visible state moved.
func (e *Engine) recomputeActivation() []models.RowUpdate {
	sort.Slice(e.rec.Presenters, func(i, j int) bool {
		return e.rec.Presenters[i].RequestedAt.Before(e.rec.Presenters[j].RequestedAt)
	})

	var updates []models.RowUpdate
	for i := range e.rec.Presenters {
		c := &e.rec.Presenters[i]
		shouldBeActive := i < models.MaxActivePresenters
		if c.Active == shouldBeActive {
			continue
		}
		c.Active = shouldBeActive
		if !shouldBeActive {
			delete(e.rec.Topics, c.UserID)
		}
		updates = append(updates, e.rec.RowFor(c.UserID))
	}
	return updates
}

func (e *Engine) persist(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(ctx, e.rec); err != nil {
		return fmt.Errorf("failed to persist day state: %w", err)
	}
	return nil
}

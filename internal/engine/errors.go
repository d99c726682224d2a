package engine

import "errors"

// Expected outcomes callers branch on. None of these indicate a bug.
var (
	// ErrNotAPresenter rejects a topic from a participant without an active
	// presenter slot.
	ErrNotAPresenter = errors.New("participant does not hold an active presenter slot")

	// ErrStaleEvent drops an event that is older than the state it would
	// replace. Routine under platform redelivery.
	ErrStaleEvent = errors.New("event is older than the recorded state")

	// ErrNoAnnouncement means today has no announcement to act on.
	ErrNoAnnouncement = errors.New("no announcement posted for today")

	// ErrAlreadyAnnounced guards duplicate announce attempts for one date.
	ErrAlreadyAnnounced = errors.New("announcement already posted for today")

	// ErrAlreadyDone guards duplicate summarize and start ticks.
	ErrAlreadyDone = errors.New("lifecycle step already completed for today")
)

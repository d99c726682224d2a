package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// AttendeeView is one classified participant in a day snapshot.
type AttendeeView struct {
	UserID string         `json:"userId"`
	Mode   AttendanceMode `json:"mode"`
}

// PresenterView is one presenter-queue entry in a day snapshot.
type PresenterView struct {
	UserID string `json:"userId"`
	Active bool   `json:"active"`
	Topic  string `json:"topic,omitempty"`
}

// DaySnapshot is the read-only view of today's record served to the
// attendance board.
type DaySnapshot struct {
	Date       string          `json:"date"`
	Phase      DayPhase        `json:"phase"`
	Announced  bool            `json:"announced"`
	Attendees  []AttendeeView  `json:"attendees"`
	Presenters []PresenterView `json:"presenters"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Snapshot builds a board view from the record. Attendees are grouped by
// mode in declaration order; presenters keep queue order.
func (r *DailyRecord) Snapshot() DaySnapshot {
	snap := DaySnapshot{
		Date:      r.Date,
		Phase:     r.Phase,
		Announced: r.Announcement != nil,
		UpdatedAt: time.Now().UTC(),
	}
	for _, mode := range []AttendanceMode{ModeInPerson, ModeOnline, ModeAbsent} {
		for _, id := range r.UsersByMode(mode) {
			snap.Attendees = append(snap.Attendees, AttendeeView{UserID: id, Mode: mode})
		}
	}
	for _, c := range r.Presenters {
		view := PresenterView{UserID: c.UserID, Active: c.Active}
		if c.Active {
			view.Topic = r.Topics[c.UserID]
		}
		snap.Presenters = append(snap.Presenters, view)
	}
	return snap
}

// BoardMessage is the envelope pushed to board websocket clients.
type BoardMessage struct {
	Type     string       `json:"type"` // currently only "snapshot"
	Snapshot *DaySnapshot `json:"snapshot,omitempty"`
}

// BoardConnection represents a single attendance-board websocket client.
type BoardConnection struct {
	ConnID    string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan BoardMessage

	mu     sync.Mutex
	closed bool
}

// SafeSend queues a message for the client, returning false once the
// connection is closed.
func (bc *BoardConnection) SafeSend(msg BoardMessage) bool {
	bc.mu.Lock()
	if bc.closed {
		bc.mu.Unlock()
		return false
	}
	bc.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			bc.MarkClosed()
		}
	}()

	select {
	case bc.WriteChan <- msg:
		return true
	default:
		// Slow consumer: drop the update, the next snapshot supersedes it.
		return false
	}
}

// MarkClosed marks the connection as closed.
func (bc *BoardConnection) MarkClosed() {
	bc.mu.Lock()
	bc.closed = true
	bc.mu.Unlock()
}

// IsClosed reports whether the connection has been marked closed.
func (bc *BoardConnection) IsClosed() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.closed
}

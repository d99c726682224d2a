package models

import "sort"

// AttendanceMode classifies a participant's declared attendance for the day.
type AttendanceMode string

const (
	ModeInPerson AttendanceMode = "in_person"
	ModeOnline   AttendanceMode = "online"
	ModeAbsent   AttendanceMode = "absent"
)

// Label returns the Japanese label used in sheets and posted messages.
func (m AttendanceMode) Label() string {
	switch m {
	case ModeInPerson:
		return "対面"
	case ModeOnline:
		return "オンライン"
	case ModeAbsent:
		return "欠席"
	}
	return ""
}

// DayPhase tracks how far today's meeting lifecycle has progressed.
type DayPhase string

const (
	PhaseIdle       DayPhase = "idle"
	PhaseAnnounced  DayPhase = "announced"
	PhaseSummarized DayPhase = "summarized"
	PhaseStarted    DayPhase = "started"
)

// MaxActivePresenters is the number of presentation slots per meeting day.
const MaxActivePresenters = 2

// MessageRef identifies one posted chat message.
type MessageRef struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// Matches reports whether the ref points at the given channel/timestamp pair.
func (r *MessageRef) Matches(channel, ts string) bool {
	return r != nil && r.Channel == channel && r.TS == ts
}

// AttendanceEntry records a participant's current mode and the token of the
// event that set it.
type AttendanceEntry struct {
	Mode          AttendanceMode `json:"mode"`
	LastUpdatedAt EventToken     `json:"lastUpdatedAt"`
}

// PresenterCandidate is one enrollment in the presenter queue.
type PresenterCandidate struct {
	UserID      string     `json:"userId"`
	RequestedAt EventToken `json:"requestedAt"`
	Active      bool       `json:"active"`
}

// DailyRecord is the complete state for one meeting day. It is owned by the
// attendance engine; everything else sees copies.
type DailyRecord struct {
	Date         string                     `json:"date"`
	Announcement *MessageRef                `json:"announcement,omitempty"`
	Phase        DayPhase                   `json:"phase"`
	Attendees    map[string]AttendanceEntry `json:"attendees"`
	Presenters   []PresenterCandidate       `json:"presenters"`
	Topics       map[string]string          `json:"topics"`
}

// NewDailyRecord returns an empty record for the given date key.
func NewDailyRecord(date string) *DailyRecord {
	return &DailyRecord{
		Date:      date,
		Phase:     PhaseIdle,
		Attendees: make(map[string]AttendanceEntry),
		Topics:    make(map[string]string),
	}
}

// EnsureMaps initializes nil collections after deserialization.
func (r *DailyRecord) EnsureMaps() {
	if r.Attendees == nil {
		r.Attendees = make(map[string]AttendanceEntry)
	}
	if r.Topics == nil {
		r.Topics = make(map[string]string)
	}
	if r.Phase == "" {
		r.Phase = PhaseIdle
	}
}

// Clone returns a deep copy safe to use outside the engine lock.
func (r *DailyRecord) Clone() *DailyRecord {
	out := &DailyRecord{
		Date:      r.Date,
		Phase:     r.Phase,
		Attendees: make(map[string]AttendanceEntry, len(r.Attendees)),
		Topics:    make(map[string]string, len(r.Topics)),
	}
	if r.Announcement != nil {
		ref := *r.Announcement
		out.Announcement = &ref
	}
	for id, entry := range r.Attendees {
		out.Attendees[id] = entry
	}
	if len(r.Presenters) > 0 {
		out.Presenters = make([]PresenterCandidate, len(r.Presenters))
		copy(out.Presenters, r.Presenters)
	}
	for id, topic := range r.Topics {
		out.Topics[id] = topic
	}
	return out
}

// ActivePresenters returns the candidates currently holding a slot, ordered
// by enrollment token.
func (r *DailyRecord) ActivePresenters() []PresenterCandidate {
	var out []PresenterCandidate
	for _, c := range r.Presenters {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// IsActivePresenter reports whether the participant holds a presenter slot.
func (r *DailyRecord) IsActivePresenter(userID string) bool {
	for _, c := range r.Presenters {
		if c.UserID == userID {
			return c.Active
		}
	}
	return false
}

// UsersByMode returns the participants declared in the given mode, ordered by
// when they declared so rendered lists stay stable across reads.
func (r *DailyRecord) UsersByMode(mode AttendanceMode) []string {
	type decl struct {
		id    string
		token EventToken
	}
	var found []decl
	for id, entry := range r.Attendees {
		if entry.Mode == mode {
			found = append(found, decl{id, entry.LastUpdatedAt})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if c := found[i].token.Compare(found[j].token); c != 0 {
			return c < 0
		}
		return found[i].id < found[j].id
	})
	out := make([]string, len(found))
	for i, d := range found {
		out[i] = d.id
	}
	return out
}

// RowFor builds the current sheet-row state for one participant.
func (r *DailyRecord) RowFor(userID string) RowUpdate {
	row := RowUpdate{Date: r.Date, UserID: userID}
	if entry, ok := r.Attendees[userID]; ok {
		row.Mode = entry.Mode
	}
	if r.IsActivePresenter(userID) {
		row.Presenter = true
		row.Topic = r.Topics[userID]
	}
	return row
}

package models

// Command is a normalized, state-changing instruction derived from exactly
// one workspace event.
type Command interface {
	CommandName() string
}

// SetAttendanceCommand records or clears an attendance declaration.
type SetAttendanceCommand struct {
	UserID string
	Mode   AttendanceMode
	Added  bool // false when the reaction was removed
	Token  EventToken
}

func (SetAttendanceCommand) CommandName() string { return "set_attendance" }

// TogglePresenterCommand enrolls or withdraws a presenter candidate.
type TogglePresenterCommand struct {
	UserID string
	Added  bool
	Token  EventToken
}

func (TogglePresenterCommand) CommandName() string { return "toggle_presenter" }

// SetTopicCommand binds a presentation topic to an active presenter.
type SetTopicCommand struct {
	UserID string
	Topic  string
	Token  EventToken
}

func (SetTopicCommand) CommandName() string { return "set_topic" }

// AnnounceCommand is the manual in-channel trigger for posting today's
// announcement.
type AnnounceCommand struct {
	UserID  string
	Channel string
}

func (AnnounceCommand) CommandName() string { return "announce" }

package slack

import "encoding/json"

// Envelope types delivered to the events endpoint.
const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"
)

// Inner event types the bot handles.
const (
	EventReactionAdded   = "reaction_added"
	EventReactionRemoved = "reaction_removed"
	EventMessage         = "message"
)

// EventEnvelope is the outer payload Slack posts to the events endpoint.
type EventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// EventHeader carries only the inner event type, for dispatch before full
// decoding.
type EventHeader struct {
	Type string `json:"type"`
}

// ReactionItem identifies the message a reaction targets.
type ReactionItem struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// ReactionEvent is a reaction_added or reaction_removed event.
type ReactionEvent struct {
	Type     string       `json:"type"`
	User     string       `json:"user"`
	Reaction string       `json:"reaction"`
	Item     ReactionItem `json:"item"`
	EventTS  string       `json:"event_ts"`
}

// MessageEvent is a message posted in a channel, possibly inside a thread.
type MessageEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	User     string `json:"user"`
	BotID    string `json:"bot_id,omitempty"`
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	EventTS  string `json:"event_ts"`
}

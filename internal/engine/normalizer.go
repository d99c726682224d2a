package engine

import (
	"strings"

	"github.com/Meru-dog/study-group-bot/internal/models"
	"github.com/Meru-dog/study-group-bot/internal/slack"
)

// Normalizer turns raw workspace events into engine commands. It is a pure
// mapping: the only state it consults is the announcement ref it is handed.
// Events that do not concern the bot come back as nil.
type Normalizer struct {
	attendanceEmoji map[string]models.AttendanceMode
	presenterEmoji  string
	topicPrefix     string
	manualCommand   string
}

// NewNormalizer returns a normalizer with the workspace's standard emoji
// vocabulary.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		attendanceEmoji: map[string]models.AttendanceMode{
			"white_check_mark": models.ModeInPerson,
			"computer":         models.ModeOnline,
			"zzz":              models.ModeAbsent,
		},
		presenterEmoji: "microphone",
		topicPrefix:    "テーマ：",
		manualCommand:  "参加宣言投稿",
	}
}

// NormalizeReaction maps a reaction event against the current announcement.
// Reactions on other messages, from unknown users, or with unmapped emoji
// are ignored.
func (n *Normalizer) NormalizeReaction(ev slack.ReactionEvent, announcement *models.MessageRef) models.Command {
	if ev.Item.Type != "message" {
		return nil
	}
	if !announcement.Matches(ev.Item.Channel, ev.Item.TS) {
		return nil
	}
	if ev.User == "" {
		return nil
	}

	token, err := models.ParseEventToken(ev.EventTS)
	if err != nil {
		return nil
	}
	added := ev.Type == slack.EventReactionAdded

	if mode, ok := n.attendanceEmoji[ev.Reaction]; ok {
		return models.SetAttendanceCommand{UserID: ev.User, Mode: mode, Added: added, Token: token}
	}
	if ev.Reaction == n.presenterEmoji {
		return models.TogglePresenterCommand{UserID: ev.User, Added: added, Token: token}
	}
	return nil
}

// NormalizeMessage maps a channel message to the manual announce command, a
// topic command from the announcement thread, or nil. Messages with a
// subtype (edits, joins, bot posts) are ignored.
func (n *Normalizer) NormalizeMessage(ev slack.MessageEvent, announcement *models.MessageRef, monitoredChannel string) models.Command {
	if ev.Subtype != "" || ev.BotID != "" {
		return nil
	}
	if ev.User == "" {
		return nil
	}

	// Manual trigger: the exact command text in the monitored channel.
	// Full-width spaces count as whitespace.
	trimmed := strings.TrimSpace(strings.ReplaceAll(ev.Text, "　", " "))
	if ev.Channel == monitoredChannel && trimmed == n.manualCommand {
		return models.AnnounceCommand{UserID: ev.User, Channel: ev.Channel}
	}

	// Topic replies live in the announcement's thread.
	if ev.ThreadTS == "" {
		return nil
	}
	if !announcement.Matches(ev.Channel, ev.ThreadTS) {
		return nil
	}
	if !strings.HasPrefix(ev.Text, n.topicPrefix) {
		return nil
	}
	topic := strings.TrimSpace(strings.TrimPrefix(ev.Text, n.topicPrefix))
	if topic == "" {
		return nil
	}

	ts := ev.TS
	if ts == "" {
		ts = ev.EventTS
	}
	token, err := models.ParseEventToken(ts)
	if err != nil {
		return nil
	}
	return models.SetTopicCommand{UserID: ev.User, Topic: topic, Token: token}
}

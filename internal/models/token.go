package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EventToken is the ordering token carried by every workspace event, parsed
// from Slack's "seconds.microseconds" timestamp form (e.g. "1712345678.000200").
// Tokens are strictly increasing per channel, so they order events reliably
// even when delivery does not. The zero value means "no event yet".
type EventToken struct {
	Seconds int64
	Micros  int64
}

// ParseEventToken parses a raw event timestamp into an EventToken.
func ParseEventToken(raw string) (EventToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return EventToken{}, fmt.Errorf("empty event timestamp")
	}

	secPart, fracPart, _ := strings.Cut(raw, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return EventToken{}, fmt.Errorf("invalid event timestamp %q: %w", raw, err)
	}

	var micros int64
	if fracPart != "" {
		// Normalize to exactly six fractional digits.
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		for len(fracPart) < 6 {
			fracPart += "0"
		}
		micros, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return EventToken{}, fmt.Errorf("invalid event timestamp %q: %w", raw, err)
		}
	}

	if sec < 0 || micros < 0 {
		return EventToken{}, fmt.Errorf("negative event timestamp %q", raw)
	}
	return EventToken{Seconds: sec, Micros: micros}, nil
}

// IsZero reports whether the token is unset.
func (t EventToken) IsZero() bool {
	return t.Seconds == 0 && t.Micros == 0
}

// Compare returns -1, 0 or 1 as t orders before, equal to or after other.
func (t EventToken) Compare(other EventToken) int {
	switch {
	case t.Seconds < other.Seconds:
		return -1
	case t.Seconds > other.Seconds:
		return 1
	case t.Micros < other.Micros:
		return -1
	case t.Micros > other.Micros:
		return 1
	}
	return 0
}

// Before reports whether t orders strictly before other.
func (t EventToken) Before(other EventToken) bool { return t.Compare(other) < 0 }

// After reports whether t orders strictly after other.
func (t EventToken) After(other EventToken) bool { return t.Compare(other) > 0 }

// String renders the token back in Slack timestamp form.
func (t EventToken) String() string {
	return fmt.Sprintf("%d.%06d", t.Seconds, t.Micros)
}

// MarshalText stores tokens in their raw timestamp form so persisted state
// stays readable next to the platform payloads.
func (t EventToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a persisted token.
func (t *EventToken) UnmarshalText(b []byte) error {
	parsed, err := ParseEventToken(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

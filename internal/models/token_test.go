package models

import (
	"encoding/json"
	"testing"
)

func TestParseEventToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    EventToken
		wantErr bool
	}{
		{"standard", "1712345678.000200", EventToken{1712345678, 200}, false},
		{"seconds only", "1712345678", EventToken{1712345678, 0}, false},
		{"short fraction", "1712345678.2", EventToken{1712345678, 200000}, false},
		{"long fraction truncated", "1712345678.1234567", EventToken{1712345678, 123456}, false},
		{"surrounding spaces", " 1712345678.000200 ", EventToken{1712345678, 200}, false},
		{"empty", "", EventToken{}, true},
		{"not a number", "abc.def", EventToken{}, true},
		{"negative", "-5.000001", EventToken{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEventToken(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got token %v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error for %q, got %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEventTokenCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b EventToken
		want int
	}{
		{"equal", EventToken{10, 5}, EventToken{10, 5}, 0},
		{"earlier seconds", EventToken{9, 999999}, EventToken{10, 0}, -1},
		{"later seconds", EventToken{11, 0}, EventToken{10, 999999}, 1},
		{"earlier micros", EventToken{10, 4}, EventToken{10, 5}, -1},
		{"later micros", EventToken{10, 6}, EventToken{10, 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Expected Compare %d, got %d", tt.want, got)
			}
			if got := tt.a.Before(tt.b); got != (tt.want < 0) {
				t.Errorf("Expected Before %v, got %v", tt.want < 0, got)
			}
			if got := tt.a.After(tt.b); got != (tt.want > 0) {
				t.Errorf("Expected After %v, got %v", tt.want > 0, got)
			}
		})
	}
}

func TestEventTokenStringRoundTrip(t *testing.T) {
	raw := "1712345678.000200"
	token, err := ParseEventToken(raw)
	if err != nil {
		t.Fatalf("Expected no parse error, got %v", err)
	}
	if token.String() != raw {
		t.Errorf("Expected %q, got %q", raw, token.String())
	}
}

func TestEventTokenJSONRoundTrip(t *testing.T) {
	entry := AttendanceEntry{Mode: ModeOnline, LastUpdatedAt: EventToken{1712345678, 200}}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Expected no marshal error, got %v", err)
	}

	var back AttendanceEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Expected no unmarshal error, got %v", err)
	}
	if back.LastUpdatedAt != entry.LastUpdatedAt {
		t.Errorf("Expected token %v, got %v", entry.LastUpdatedAt, back.LastUpdatedAt)
	}
	if back.Mode != ModeOnline {
		t.Errorf("Expected mode %s, got %s", ModeOnline, back.Mode)
	}
}

func TestEventTokenIsZero(t *testing.T) {
	if !(EventToken{}).IsZero() {
		t.Error("Expected zero token to report IsZero")
	}
	if (EventToken{1, 0}).IsZero() {
		t.Error("Expected non-zero token to not report IsZero")
	}
}

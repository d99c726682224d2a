package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// runCatchUp posts the announcement late when the scheduled tick was
// missed. The gate is the cron expression itself: nothing happens on
// days the announce job does not fire, or before its scheduled minute.
// Announce is idempotent, so a day that already has its announcement is
// a cheap no-op.
func (s *Scheduler) runCatchUp() {
	now := s.now().In(s.schedule.Location)
	if !announceDue(s.announce, now) {
		return
	}

	posted, err := s.bot.Announce(context.Background())
	if err != nil {
		log.Printf("❌ [SCHEDULER] Announcement catch-up failed: %v", err)
		return
	}
	if posted {
		log.Printf("📣 [SCHEDULER] Posted missed announcement during catch-up")
	}
}

// announceDue reports whether the announce tick was scheduled earlier
// today. The second before midnight anchors the search so a tick at
// exactly 00:00 still counts as today's.
func announceDue(schedule cron.Schedule, now time.Time) bool {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := schedule.Next(startOfDay.Add(-time.Second))
	if next.IsZero() {
		return false
	}
	if next.Year() != now.Year() || next.YearDay() != now.YearDay() {
		return false
	}
	return !next.After(now)
}

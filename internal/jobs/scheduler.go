package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Bot is the lifecycle surface the scheduled ticks drive. All three
// operations are idempotent, so a tick that fires twice in one day is
// harmless.
type Bot interface {
	Announce(ctx context.Context) (bool, error)
	Summarize(ctx context.Context) error
	Start(ctx context.Context) error
}

// Schedule holds the cron expressions for the three daily posts.
// Expressions use the standard five-field layout and are evaluated in
// Location.
type Schedule struct {
	AnnounceCron string
	SummaryCron  string
	StartCron    string
	Location     *time.Location
	CatchUpEvery time.Duration
}

// cronParser accepts the standard five-field layout (minute hour dom month dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate parses every expression so a typo in the environment fails
// startup instead of a post silently never firing.
func (s Schedule) Validate() error {
	entries := []struct {
		name string
		expr string
	}{
		{"announce", s.AnnounceCron},
		{"summary", s.SummaryCron},
		{"start", s.StartCron},
	}
	for _, entry := range entries {
		if _, err := cronParser.Parse(entry.expr); err != nil {
			return fmt.Errorf("invalid %s cron expression %q: %w", entry.name, entry.expr, err)
		}
	}
	return nil
}

// Scheduler fires the announcement, summary and start posts on their
// configured cron ticks, plus a catch-up pass that posts a missed
// announcement late (process restart, Slack outage at the scheduled
// minute).
type Scheduler struct {
	scheduler gocron.Scheduler
	bot       Bot
	schedule  Schedule
	announce  cron.Schedule
	now       func() time.Time
}

// NewScheduler builds and registers all jobs. Nothing fires until Start.
func NewScheduler(bot Bot, schedule Schedule) (*Scheduler, error) {
	if schedule.Location == nil {
		schedule.Location = time.Local
	}
	if schedule.CatchUpEvery <= 0 {
		schedule.CatchUpEvery = 5 * time.Minute
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	announceSched, err := cronParser.Parse(schedule.AnnounceCron)
	if err != nil {
		return nil, fmt.Errorf("invalid announce cron expression %q: %w", schedule.AnnounceCron, err)
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(schedule.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: sched,
		bot:       bot,
		schedule:  schedule,
		announce:  announceSched,
		now:       time.Now,
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	ticks := []struct {
		name string
		expr string
		run  func(context.Context) error
	}{
		{"announce", s.schedule.AnnounceCron, s.runAnnounce},
		{"summary", s.schedule.SummaryCron, s.bot.Summarize},
		{"start", s.schedule.StartCron, s.bot.Start},
	}

	for _, tick := range ticks {
		cronWithTZ := fmt.Sprintf("CRON_TZ=%s %s", s.schedule.Location.String(), tick.expr)
		name := tick.name
		run := tick.run
		_, err := s.scheduler.NewJob(
			gocron.CronJob(cronWithTZ, false),
			gocron.NewTask(func() {
				s.runTick(name, run)
			}),
			gocron.WithName(name),
		)
		if err != nil {
			return fmt.Errorf("failed to register %s job: %w", name, err)
		}
		log.Printf("📅 [SCHEDULER] Registered %s tick (cron: %s, tz: %s)", name, tick.expr, s.schedule.Location)
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.schedule.CatchUpEvery),
		gocron.NewTask(s.runCatchUp),
		gocron.WithName("announce-catchup"),
	)
	if err != nil {
		return fmt.Errorf("failed to register catch-up job: %w", err)
	}
	return nil
}

func (s *Scheduler) runTick(name string, run func(context.Context) error) {
	log.Printf("▶️ [SCHEDULER] Running %s tick", name)
	started := time.Now()

	if err := run(context.Background()); err != nil {
		log.Printf("❌ [SCHEDULER] %s tick failed: %v", name, err)
		return
	}
	log.Printf("✅ [SCHEDULER] %s tick completed in %v", name, time.Since(started))
}

func (s *Scheduler) runAnnounce(ctx context.Context) error {
	posted, err := s.bot.Announce(ctx)
	if err != nil {
		return err
	}
	if !posted {
		log.Printf("⏭️ [SCHEDULER] Announcement already posted today, nothing to do")
	}
	return nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Printf("⏰ [SCHEDULER] Started with %d jobs", len(s.scheduler.Jobs()))
}

// Stop shuts the scheduler down and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	log.Println("🛑 [SCHEDULER] Stopping...")
	return s.scheduler.Shutdown()
}

// NextRuns reports the next fire time of every registered job, keyed by
// job name. Jobs without a computed next run yet are omitted.
func (s *Scheduler) NextRuns() map[string]time.Time {
	runs := make(map[string]time.Time)
	for _, job := range s.scheduler.Jobs() {
		next, err := job.NextRun()
		if err != nil {
			continue
		}
		runs[job.Name()] = next
	}
	return runs
}

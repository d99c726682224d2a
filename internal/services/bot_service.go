package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Meru-dog/study-group-bot/internal/engine"
	"github.com/Meru-dog/study-group-bot/internal/models"
	"github.com/Meru-dog/study-group-bot/internal/sheets"
	"github.com/Meru-dog/study-group-bot/internal/slack"
	"github.com/Meru-dog/study-group-bot/internal/templates"
)

// DateFormat renders meeting dates the way the attendance sheet keys them.
const DateFormat = "2006/01/02"

// SlackGateway is the slice of the Slack client the bot service needs.
type SlackGateway interface {
	PostMessage(ctx context.Context, channel, text string) (string, error)
	UserDisplayName(ctx context.Context, userID string) (string, error)
}

// BotService wires workspace events into the day engine and carries the
// results out to Slack, the attendance sheet, and the live board.
type BotService struct {
	engine     *engine.Engine
	normalizer *engine.Normalizer
	gateway    SlackGateway
	repo       sheets.Repository
	templates  *templates.Service
	connMgr    *ConnectionManager
	metrics    *Metrics

	channelID string
	meetURL   string
	location  *time.Location

	// lifecycleMu serializes announcement, summary, and start posts so the
	// cron, catch-up, and manual paths cannot double-post.
	lifecycleMu sync.Mutex

	// syncMu keeps sheet row flushes in emission order.
	syncMu sync.Mutex
}

// NewBotService creates the orchestrator for one monitored channel.
func NewBotService(
	eng *engine.Engine,
	normalizer *engine.Normalizer,
	gateway SlackGateway,
	repo sheets.Repository,
	tmpl *templates.Service,
	connMgr *ConnectionManager,
	metrics *Metrics,
	channelID string,
	meetURL string,
	location *time.Location,
) *BotService {
	return &BotService{
		engine:     eng,
		normalizer: normalizer,
		gateway:    gateway,
		repo:       repo,
		templates:  tmpl,
		connMgr:    connMgr,
		metrics:    metrics,
		channelID:  channelID,
		meetURL:    meetURL,
		location:   location,
	}
}

// Today returns the current meeting-date key in the bot's timezone.
func (s *BotService) Today() string {
	return time.Now().In(s.location).Format(DateFormat)
}

// CurrentSnapshot returns the board view of today's record.
func (s *BotService) CurrentSnapshot() models.DaySnapshot {
	return s.engine.Snapshot().Snapshot()
}

// QueueLength reports the presenter queue size, for the metrics gauge.
func (s *BotService) QueueLength() int {
	return len(s.engine.Snapshot().Presenters)
}

// EnsureSheetReady prepares the tabular backend. Failures are logged, not
// fatal: rows retry on the next write.
func (s *BotService) EnsureSheetReady(ctx context.Context) {
	if err := s.repo.EnsureHeaders(ctx); err != nil {
		log.Printf("⚠️ [BOT] Sheet backend %s not ready: %v", s.repo.Name(), err)
	}
}

// HandleReaction processes one reaction_added or reaction_removed delivery.
func (s *BotService) HandleReaction(ctx context.Context, ev slack.ReactionEvent) {
	s.recordEvent(ev.Type)
	cmd := s.normalizer.NormalizeReaction(ev, s.engine.AnnouncementRef())
	if cmd == nil {
		return
	}
	s.applyCommand(ctx, cmd)
}

// HandleMessage processes one message delivery: the manual announce trigger
// or a topic reply in the announcement thread.
func (s *BotService) HandleMessage(ctx context.Context, ev slack.MessageEvent) {
	s.recordEvent("message")
	cmd := s.normalizer.NormalizeMessage(ev, s.engine.AnnouncementRef(), s.channelID)
	if cmd == nil {
		return
	}
	if announce, ok := cmd.(models.AnnounceCommand); ok {
		s.handleManualAnnounce(ctx, announce)
		return
	}
	s.applyCommand(ctx, cmd)
}

func (s *BotService) handleManualAnnounce(ctx context.Context, cmd models.AnnounceCommand) {
	if _, err := s.Announce(ctx); err != nil {
		log.Printf("❌ [BOT] Manual announcement failed: %v", err)
		s.recordCommand(cmd.CommandName(), "error")
		return
	}
	s.recordCommand(cmd.CommandName(), "applied")
	if _, err := s.gateway.PostMessage(ctx, cmd.Channel, s.templates.ManualConfirmText()); err != nil {
		log.Printf("⚠️ [BOT] Failed to post manual confirmation: %v", err)
	}
}

func (s *BotService) applyCommand(ctx context.Context, cmd models.Command) {
	updates, err := s.engine.Apply(ctx, cmd)
	s.recordCommand(cmd.CommandName(), commandOutcome(updates, err))

	switch {
	case err == nil:
	case errors.Is(err, engine.ErrStaleEvent):
		log.Printf("⏭️ [BOT] Dropped out-of-order %s event", cmd.CommandName())
	case errors.Is(err, engine.ErrNotAPresenter):
		log.Printf("🚫 [BOT] Ignored topic from a user without a presenter slot")
	default:
		log.Printf("❌ [BOT] Failed to apply %s: %v", cmd.CommandName(), err)
	}

	if len(updates) > 0 {
		s.flushRows(ctx, updates)
		s.broadcastSnapshot()
	}
}

func commandOutcome(updates []models.RowUpdate, err error) string {
	switch {
	case errors.Is(err, engine.ErrStaleEvent):
		return "stale"
	case errors.Is(err, engine.ErrNotAPresenter):
		return "rejected"
	case err != nil:
		return "error"
	case len(updates) == 0:
		return "noop"
	default:
		return "applied"
	}
}

// Announce posts today's declaration message and opens the day record. It is
// idempotent: once today is announced, further calls are skipped. Returns
// whether a message was posted.
func (s *BotService) Announce(ctx context.Context) (bool, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	today := s.Today()
	if !s.engine.CanAnnounce(today) {
		log.Printf("⏭️ [BOT] Announcement for %s already posted", today)
		s.recordLifecyclePost("announcement", "skipped")
		return false, nil
	}

	ts, err := s.gateway.PostMessage(ctx, s.channelID, s.templates.AnnouncementText(s.meetURL))
	if err != nil {
		s.recordLifecyclePost("announcement", "error")
		return false, fmt.Errorf("failed to post announcement: %w", err)
	}

	ref := models.MessageRef{Channel: s.channelID, TS: ts}
	if err := s.engine.BeginDay(ctx, today, ref); err != nil {
		s.recordLifecyclePost("announcement", "error")
		return false, fmt.Errorf("failed to open day %s: %w", today, err)
	}

	s.recordLifecyclePost("announcement", "ok")
	log.Printf("📣 [BOT] Announcement posted for %s", today)
	s.broadcastSnapshot()
	return true, nil
}

// Summarize posts the mid-afternoon roll call. Skipped when the day was
// never announced, when it already ran, or when nobody has declared yet.
func (s *BotService) Summarize(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	today := s.Today()
	rec := s.engine.Snapshot()
	switch {
	case rec.Date != today || rec.Announcement == nil:
		log.Printf("⏭️ [BOT] No announcement for %s, skipping summary", today)
		s.recordLifecyclePost("summary", "skipped")
		return nil
	case rec.Phase != models.PhaseAnnounced:
		log.Printf("⏭️ [BOT] Summary for %s already handled (phase %s)", today, rec.Phase)
		s.recordLifecyclePost("summary", "skipped")
		return nil
	case len(rec.Attendees) == 0 && len(rec.Presenters) == 0:
		log.Printf("⏭️ [BOT] No declarations for %s yet, skipping summary", today)
		s.recordLifecyclePost("summary", "skipped")
		return nil
	}

	values := templates.SummaryValues{
		InPerson:   s.nameList(ctx, rec.UsersByMode(models.ModeInPerson)),
		Online:     s.nameList(ctx, rec.UsersByMode(models.ModeOnline)),
		Absent:     s.nameList(ctx, rec.UsersByMode(models.ModeAbsent)),
		Presenters: s.presenterLines(ctx, rec),
		MeetURL:    s.meetURL,
	}
	if _, err := s.gateway.PostMessage(ctx, s.channelID, s.templates.SummaryText(values)); err != nil {
		s.recordLifecyclePost("summary", "error")
		return fmt.Errorf("failed to post summary: %w", err)
	}
	if err := s.engine.MarkSummarized(ctx, today); err != nil {
		log.Printf("⚠️ [BOT] Failed to mark summary done: %v", err)
	}
	s.recordLifecyclePost("summary", "ok")
	log.Printf("🗒️ [BOT] Summary posted for %s", today)
	return nil
}

// Start posts the meeting-start broadcast with the final presenter list.
func (s *BotService) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	today := s.Today()
	rec := s.engine.Snapshot()
	switch {
	case rec.Date != today || rec.Announcement == nil:
		log.Printf("⏭️ [BOT] No announcement for %s, skipping start message", today)
		s.recordLifecyclePost("start", "skipped")
		return nil
	case rec.Phase == models.PhaseStarted:
		log.Printf("⏭️ [BOT] Start message for %s already posted", today)
		s.recordLifecyclePost("start", "skipped")
		return nil
	}

	values := templates.StartValues{
		Presenters: s.presenterLines(ctx, rec),
		MeetURL:    s.meetURL,
	}
	if _, err := s.gateway.PostMessage(ctx, s.channelID, s.templates.StartText(values)); err != nil {
		s.recordLifecyclePost("start", "error")
		return fmt.Errorf("failed to post start message: %w", err)
	}
	if err := s.engine.MarkStarted(ctx, today); err != nil {
		log.Printf("⚠️ [BOT] Failed to mark start done: %v", err)
	}
	s.recordLifecyclePost("start", "ok")
	log.Printf("🚀 [BOT] Start message posted for %s", today)
	return nil
}

// flushRows resolves display names and mirrors row intents to the sheet in
// emission order.
func (s *BotService) flushRows(ctx context.Context, updates []models.RowUpdate) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	for _, u := range updates {
		row := u.WithName(s.displayName(ctx, u.UserID))
		start := time.Now()
		if err := s.repo.Upsert(ctx, row); err != nil {
			s.recordSheetSync("error", time.Since(start).Seconds())
			log.Printf("❌ [BOT] Failed to sync row for %s: %v", u.UserID, err)
			continue
		}
		s.recordSheetSync("ok", time.Since(start).Seconds())
	}
}

func (s *BotService) broadcastSnapshot() {
	if s.connMgr == nil {
		return
	}
	snap := s.CurrentSnapshot()
	if s.connMgr.Broadcast(models.BoardMessage{Type: "snapshot", Snapshot: &snap}) > 0 {
		s.recordBoardMessage("snapshot", "outbound")
	}
}

func (s *BotService) displayName(ctx context.Context, userID string) string {
	name, err := s.gateway.UserDisplayName(ctx, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}

func (s *BotService) nameList(ctx context.Context, ids []string) string {
	if len(ids) == 0 {
		return "なし"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.displayName(ctx, id))
	}
	return strings.Join(names, ", ")
}

func (s *BotService) presenterLines(ctx context.Context, rec *models.DailyRecord) string {
	active := rec.ActivePresenters()
	if len(active) == 0 {
		return "- なし"
	}
	lines := make([]string, 0, len(active))
	for _, c := range active {
		topic := rec.Topics[c.UserID]
		if topic == "" {
			topic = "未入力"
		}
		mode := rec.Attendees[c.UserID].Mode.Label()
		lines = append(lines, fmt.Sprintf("- %s（%s） テーマ: %s", s.displayName(ctx, c.UserID), mode, topic))
	}
	return strings.Join(lines, "\n")
}

func (s *BotService) recordEvent(eventType string) {
	if s.metrics != nil {
		s.metrics.RecordSlackEvent(eventType)
	}
}

func (s *BotService) recordCommand(command, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCommand(command, outcome)
	}
}

func (s *BotService) recordLifecyclePost(kind, status string) {
	if s.metrics != nil {
		s.metrics.RecordLifecyclePost(kind, status)
	}
}

func (s *BotService) recordSheetSync(status string, seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordSheetSync(status, seconds)
	}
}

func (s *BotService) recordBoardMessage(msgType, direction string) {
	if s.metrics != nil {
		s.metrics.RecordBoardMessage(msgType, direction)
	}
}

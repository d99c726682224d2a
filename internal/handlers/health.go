package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Meru-dog/study-group-bot/internal/services"
	"github.com/Meru-dog/study-group-bot/internal/sheets"
	"github.com/Meru-dog/study-group-bot/internal/state"
)

// TickSource reports the next fire time of each scheduled post.
type TickSource interface {
	NextRuns() map[string]time.Time
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store         state.Store
	repo          sheets.Repository
	connManager   *services.ConnectionManager
	ticks         TickSource
	slackVerified time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store state.Store, repo sheets.Repository, connManager *services.ConnectionManager) *HealthHandler {
	return &HealthHandler{store: store, repo: repo, connManager: connManager}
}

// SetTickSource wires the scheduler in so the check can report upcoming
// posts. Optional.
func (h *HealthHandler) SetTickSource(ticks TickSource) {
	h.ticks = ticks
}

// SetSlackVerified records when the bot token last passed auth.test.
// Optional.
func (h *HealthHandler) SetSlackVerified(at time.Time) {
	h.slackVerified = at
}

// Handle responds with server health status. The state store is the one
// component the bot cannot run without, so a failed ping degrades the check.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK

	stateStatus := "ok"
	if err := h.store.Ping(c.Context()); err != nil {
		stateStatus = "down: " + err.Error()
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	components := fiber.Map{
		"state":  stateStatus,
		"sheets": h.repo.Name(),
	}
	if !h.slackVerified.IsZero() {
		components["slack"] = "token verified " + h.slackVerified.Format(time.RFC3339)
	}
	if h.ticks != nil {
		next := fiber.Map{}
		for name, at := range h.ticks.NextRuns() {
			next[name] = at.Format(time.RFC3339)
		}
		components["scheduler"] = next
	}

	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"components":  components,
		"connections": h.connManager.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Meru-dog/study-group-bot/internal/services"
)

// TodayHandler serves the read-only view of today's record.
type TodayHandler struct {
	bot *services.BotService
}

// NewTodayHandler creates a new today handler
func NewTodayHandler(bot *services.BotService) *TodayHandler {
	return &TodayHandler{bot: bot}
}

// Handle returns the current day snapshot.
// GET /api/today
func (h *TodayHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.bot.CurrentSnapshot())
}

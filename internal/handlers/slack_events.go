package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Meru-dog/study-group-bot/internal/logging"
	"github.com/Meru-dog/study-group-bot/internal/services"
	"github.com/Meru-dog/study-group-bot/internal/slack"
)

// SlackEventsHandler receives Events API deliveries. Slack expects a 2xx
// within three seconds, so event processing happens off the request path
// and the endpoint acks immediately.
type SlackEventsHandler struct {
	bot *services.BotService
}

// NewSlackEventsHandler creates a new events handler
func NewSlackEventsHandler(bot *services.BotService) *SlackEventsHandler {
	return &SlackEventsHandler{bot: bot}
}

// Handle processes one delivery from Slack.
// POST /slack/events
func (h *SlackEventsHandler) Handle(c *fiber.Ctx) error {
	var envelope slack.EventEnvelope
	if err := json.Unmarshal(c.Body(), &envelope); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid event payload",
		})
	}

	switch envelope.Type {
	case slack.EnvelopeURLVerification:
		return c.JSON(fiber.Map{"challenge": envelope.Challenge})

	case slack.EnvelopeEventCallback:
		h.dispatch(envelope)
		return c.SendStatus(fiber.StatusOK)

	default:
		log.Printf("⚠️ [EVENTS] Ignoring envelope type %q", envelope.Type)
		return c.SendStatus(fiber.StatusOK)
	}
}

// dispatch hands the inner event to the bot service on a fresh goroutine.
// The request context dies with the ack, so processing gets its own.
func (h *SlackEventsHandler) dispatch(envelope slack.EventEnvelope) {
	var header slack.EventHeader
	if err := json.Unmarshal(envelope.Event, &header); err != nil {
		log.Printf("⚠️ [EVENTS] Undecodable inner event: %v", err)
		return
	}

	switch header.Type {
	case slack.EventReactionAdded, slack.EventReactionRemoved:
		var ev slack.ReactionEvent
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			log.Printf("⚠️ [EVENTS] Bad reaction event: %v", err)
			return
		}
		logging.WithEvent(ev.Type, ev.User, ev.Item.Channel).Debug("dispatching event")
		go h.bot.HandleReaction(context.Background(), ev)

	case slack.EventMessage:
		var ev slack.MessageEvent
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			log.Printf("⚠️ [EVENTS] Bad message event: %v", err)
			return
		}
		logging.WithEvent(ev.Type, ev.User, ev.Channel).Debug("dispatching event")
		go h.bot.HandleMessage(context.Background(), ev)
	}
}

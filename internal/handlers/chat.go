package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"taskchat/internal/models"
	"taskchat/internal/orchestrator"

	"github.com/gofiber/fiber/v2"
)

// HistoryReader exposes the slice of the conversation log the history
// endpoint serves.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, limit int, maxAge time.Duration) ([]models.ConversationMessage, error)
}

// ChatHandler handles the conversational endpoints
type ChatHandler struct {
	orchestrator  *orchestrator.Orchestrator
	history       HistoryReader
	historyLimit  int
	historyMaxAge time.Duration
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orch *orchestrator.Orchestrator, history HistoryReader, historyLimit int, historyMaxAge time.Duration) *ChatHandler {
	return &ChatHandler{
		orchestrator:  orch,
		history:       history,
		historyLimit:  historyLimit,
		historyMaxAge: historyMaxAge,
	}
}

// ChatRequest is the request body for a chat turn
type ChatRequest struct {
	Message string `json:"message"`
}

// Chat runs one conversational turn
// POST /api/chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.orchestrator.ProcessTurn(c.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message cannot be empty",
			})
		}
		log.Printf("❌ Chat turn failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(result)
}

// historyMessage is the wire shape of one logged message
type historyMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History returns the recent conversation log, oldest first
// GET /api/chat/history
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	limit := c.QueryInt("limit", h.historyLimit)
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}

	messages, err := h.history.Recent(c.Context(), userID, limit, h.historyMaxAge)
	if err != nil {
		log.Printf("❌ Failed to load history for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation history",
		})
	}

	out := make([]historyMessage, len(messages))
	for i, m := range messages {
		out[i] = historyMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}

	return c.JSON(fiber.Map{
		"messages": out,
		"count":    len(out),
	})
}

package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"chatbot/models"
	"chatbot/services"

	"github.com/gin-gonic/gin"
)

type ConversationService interface {
	Ask(ctx context.Context, text string) (models.Conversation, error)
	Conversation(ctx context.Context, id string) (models.Conversation, error)
}

type ChatController struct {
	chat ConversationService
}

func NewChatController(chat ConversationService) *ChatController {
	return &ChatController{chat: chat}
}

// Message is a pointer so an empty string can be told apart from a missing
// field.
type askRequest struct {
	Message *string `json:"message" form:"message"`
}

// AskQuestion accepts the message from the query string, a form field or a
// JSON body, and answers with the conversation's URL. Any string is accepted,
// including "".
func (h *ChatController) AskQuestion(c *gin.Context) {
	ctx := c.Request.Context()

	var req askRequest
	if msg, ok := c.GetQuery("message"); ok {
		req.Message = &msg
	} else if err := c.ShouldBind(&req); err != nil {
		slog.WarnContext(ctx, "invalid ask request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message must be a string"})
		return
	}
	if req.Message == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message is required"})
		return
	}

	conv, err := h.chat.Ask(ctx, *req.Message)
	if err != nil {
		var extErr *services.ExternalServiceError
		if errors.As(err, &extErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail":       "Error communicating with OpenAI API",
				"redirect_url": ConversationURL(conv.ID),
			})
			return
		}
		slog.ErrorContext(ctx, "ask failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_url": ConversationURL(conv.ID)})
}

func (h *ChatController) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()

	conv, err := h.chat.Conversation(ctx, c.Param("conversation_id"))
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Conversation not found"})
			return
		}
		slog.ErrorContext(ctx, "get conversation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, conv)
}

func ConversationURL(id string) string {
	return "/conversation/" + id
}

// README: Chat endpoint: one conversation turn in, reply + form update out.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"berline/internal/modules/chat"
)

// chatTurnTimeout bounds a whole turn, including routing waits and the model
// call with its fallback retry.
const chatTurnTimeout = 30 * time.Second

type ChatHandler struct {
	orch *chat.Orchestrator
}

func NewChatHandler(orch *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

type chatRequest struct {
	UserMessage string       `json:"userMessage"`
	Context     chat.Context `json:"context"`
	History     []chat.Turn  `json:"history"`
}

type chatResponse struct {
	OK         bool             `json:"ok"`
	Reply      string           `json:"reply"`
	FormUpdate *chat.FormUpdate `json:"formUpdate,omitempty"`
}

// Handle serves POST /api/chat.
func (h *ChatHandler) Handle(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidJSON)
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		writeError(c, http.StatusBadRequest, CodeEmptyMessage)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTurnTimeout)
	defer cancel()

	resp, err := h.orch.Respond(ctx, chat.TurnRequest{
		UserMessage: req.UserMessage,
		Context:     chat.Sanitize(req.Context),
		History:     chat.BoundHistory(req.History),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, chatResponse{OK: true, Reply: resp.Reply, FormUpdate: resp.FormUpdate})
}

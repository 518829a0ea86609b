package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/conversation"
	"github.com/BaSui01/recruitflow/integrations/mail"
)

// InboundHandler decides what to do with one inbound message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, ev mail.WebhookEvent) (*conversation.Decision, error)
}

// WebhookHandler receives AgentMail events.
type WebhookHandler struct {
	machine InboundHandler
	logger  *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(machine InboundHandler, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{machine: machine, logger: logger.With(zap.String("component", "webhook_handler"))}
}

// HandleWebhook 处理 POST /api/webhooks/agentmail
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var ev mail.WebhookEvent
	if err := DecodeJSONBody(w, r, &ev, h.logger); err != nil {
		return
	}

	dec, err := h.machine.HandleInbound(r.Context(), ev)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, dec)
}

// HandleInfo 处理 GET /api/webhooks/agentmail
func (h *WebhookHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "AgentMail webhook endpoint"})
}

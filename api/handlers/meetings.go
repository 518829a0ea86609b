package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/api"
	"github.com/BaSui01/recruitflow/meeting"
)

// MeetingService runs acceptance and the meeting lifecycle.
type MeetingService interface {
	Accept(ctx context.Context, req meeting.AcceptRequest) (*meeting.AcceptResult, error)
	Start(ctx context.Context, meetingID string) (*meeting.Result, error)
	End(ctx context.Context, meetingID string) (*meeting.Result, error)
	SetSummary(ctx context.Context, meetingID, summary string) (*meeting.Result, error)
}

// =============================================================================
// 🗓️ 会议 Handler
// =============================================================================

// MeetingHandler serves candidate acceptance and /api/meetings.
type MeetingHandler struct {
	meetings MeetingService
	logger   *zap.Logger
}

// NewMeetingHandler creates a MeetingHandler.
func NewMeetingHandler(meetings MeetingService, logger *zap.Logger) *MeetingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingHandler{meetings: meetings, logger: logger.With(zap.String("component", "meeting_handler"))}
}

// HandleAccept 处理 POST /api/candidates/accepted
func (h *MeetingHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req meeting.AcceptRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	res, err := h.meetings.Accept(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleStart 处理 POST /api/meetings/start
func (h *MeetingHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.meetings.Start)
}

// HandleEnd 处理 POST /api/meetings/end
func (h *MeetingHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.meetings.End)
}

func (h *MeetingHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*meeting.Result, error)) {
	var req api.MeetingRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	res, err := op(r.Context(), req.MeetingID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleSummary 处理 POST /api/meetings/summary
func (h *MeetingHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var req api.SummaryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	res, err := h.meetings.SetSummary(r.Context(), req.MeetingID, req.Summary)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

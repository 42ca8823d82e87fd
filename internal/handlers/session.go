package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/services"
)

type SessionHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{
		log:            log.With("handler", "SessionHandler"),
		sessionService: sessionService,
	}
}

type createSessionRequest struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs" binding:"required"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var body createSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	session, paragraphs, err := h.sessionService.CreateSession(c.Request.Context(), body.Title, body.Paragraphs)
	if err != nil {
		h.log.Error("CreateSession failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_session_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": session, "paragraphs": paragraphs})
}

func (h *SessionHandler) GetDocument(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	session, paragraphs, err := h.sessionService.GetDocument(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("GetDocument failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	RespondOK(c, gin.H{"session": session, "paragraphs": paragraphs})
}

func (h *SessionHandler) ListEvents(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	events, err := h.sessionService.ListEvents(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.log.Error("ListEvents failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if err := h.sessionService.EndSession(c.Request.Context(), sessionID); err != nil {
		h.log.Error("EndSession failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusInternalServerError, "end_session_failed", err)
		return
	}
	RespondOK(c, gin.H{"ended": true})
}

func (h *SessionHandler) ClearCache(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if err := h.sessionService.ClearCache(c.Request.Context(), sessionID); err != nil {
		h.log.Error("ClearCache failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return uuid.Nil, false
	}
	return sessionID, true
}

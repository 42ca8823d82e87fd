package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/modules/edit"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

type EditHandler struct {
	log         *logger.Logger
	coordinator *edit.Coordinator
}

func NewEditHandler(log *logger.Logger, coordinator *edit.Coordinator) *EditHandler {
	return &EditHandler{
		log:         log.With("handler", "EditHandler"),
		coordinator: coordinator,
	}
}

type applyEditRequest struct {
	Scope          string `json:"scope" binding:"required"`
	Instruction    string `json:"instruction" binding:"required"`
	SelectedText   string `json:"selected_text"`
	ParagraphIndex *int   `json:"paragraph_index"`
}

// ApplyEdit resolves one instruction and applies it to the session's
// document. Scope violations are 400, write conflicts 409 and retryable
// against fresh state; everything else resolves to some outcome.
func (h *EditHandler) ApplyEdit(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var body applyEditRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	req := domain.EditRequest{
		SessionID:      sessionID,
		Scope:          domain.EditScope(body.Scope),
		Instruction:    body.Instruction,
		SelectedText:   body.SelectedText,
		ParagraphIndex: body.ParagraphIndex,
	}

	result, err := h.coordinator.ResolveAndApply(c.Request.Context(), req)
	if err != nil {
		h.log.Error("ApplyEdit failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusInternalServerError, "apply_edit_failed", err)
		return
	}

	switch result.ErrorKind {
	case domain.ErrorInvalidScope:
		RespondError(c, http.StatusBadRequest, string(domain.ErrorInvalidScope), errors.New("scope fields do not match the declared scope"))
	case domain.ErrorStoreConflict:
		// The result rides along: a global edit may have mutated some
		// paragraphs before the conflict, and the client needs that list.
		c.JSON(http.StatusConflict, gin.H{
			"error": APIError{
				Message: "document changed concurrently; retry against fresh state",
				Code:    string(domain.ErrorStoreConflict),
			},
			"result": result,
		})
	default:
		// Canceled requests land here too: the resolution was cached and
		// nothing was applied, which the result body says explicitly.
		RespondOK(c, gin.H{"result": result})
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/repos"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

// editEventRecorder persists one audit row per applied edit. The payload
// keeps the full request and resolution so an edit can be reconstructed
// later.
type editEventRecorder struct {
	log  *logger.Logger
	repo repos.EditEventRepo
}

func NewEditEventRecorder(log *logger.Logger, repo repos.EditEventRepo) *editEventRecorder {
	return &editEventRecorder{
		log:  log.With("service", "EditEventRecorder"),
		repo: repo,
	}
}

func (r *editEventRecorder) RecordEdit(ctx context.Context, req domain.EditRequest, result domain.EditResult) error {
	changed, err := json.Marshal(result.ParagraphsChanged)
	if err != nil {
		return fmt.Errorf("marshal changed indexes: %w", err)
	}
	fields := map[string]any{
		"scope":       req.Scope,
		"instruction": req.Instruction,
		"old_value":   result.Resolution.OldValue,
		"new_value":   result.Resolution.NewValue,
	}
	if result.ErrorKind != domain.ErrorNone {
		fields["error_kind"] = result.ErrorKind
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	event := &types.EditEvent{
		SessionID:         req.SessionID,
		SourceTier:        string(result.Resolution.SourceTier),
		MutationKind:      string(result.Resolution.Kind),
		Confidence:        string(result.Resolution.Confidence),
		ParagraphsChanged: datatypes.JSON(changed),
		Payload:           datatypes.JSON(payload),
	}
	if _, err := r.repo.Create(ctx, nil, event); err != nil {
		return fmt.Errorf("persist edit event: %w", err)
	}
	return nil
}

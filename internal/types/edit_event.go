package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EditEvent is the audit trail of applied mutations: which tier resolved
// the instruction, what mutation was applied and where.
type EditEvent struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"session_id"`
	Session           *DocumentSession `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	SourceTier        string           `gorm:"type:text;not null" json:"source_tier"`
	MutationKind      string           `gorm:"type:text;not null" json:"mutation_kind"`
	Confidence        string           `gorm:"type:text;not null" json:"confidence"`
	ParagraphsChanged datatypes.JSON   `gorm:"type:jsonb;not null;default:'[]'" json:"paragraphs_changed"`
	Payload           datatypes.JSON   `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:now();index" json:"created_at"`
}

func (EditEvent) TableName() string { return "edit_event" }

package types

import (
	"time"

	"github.com/google/uuid"
)

// Paragraph is one ordered unit of the active document. Index and order are
// stable for the life of a session; only Text and Version mutate. Version
// increments on every successful write and is the optimistic-lock token.
type Paragraph struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_paragraph_session_index" json:"session_id"`
	Session   *DocumentSession `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	Index     int              `gorm:"column:index;not null;uniqueIndex:idx_paragraph_session_index" json:"index"`
	Text      string           `gorm:"type:text;not null" json:"text"`
	Version   int              `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Paragraph) TableName() string { return "paragraph" }

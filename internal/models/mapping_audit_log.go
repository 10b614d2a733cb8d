package models

import (
	"time"

	"github.com/google/uuid"
)

type MappingAuditLog struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID         uuid.UUID `gorm:"index"`
	Action                string
	PreviousDebitAccount  *uuid.UUID
	PreviousCreditAccount *uuid.UUID
	NewDebitAccount       *uuid.UUID
	NewCreditAccount      *uuid.UUID
	PerformedBy           string
	Reason                string
	CreatedAt             time.Time
}

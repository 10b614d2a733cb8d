package models

import (
	"time"

	"github.com/google/uuid"
)

type MappingBatch struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Filename          string
	TotalTransactions int
	ProcessedCount    int
	MappedCount       int
	UnmappedCount     int
	Status            string
	StartedAt         time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}

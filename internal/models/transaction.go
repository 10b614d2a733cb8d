package models

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "pending"
	StatusMapped   = "mapped"
	StatusUnmapped = "unmapped"
	StatusApproved = "approved"
)

type Transaction struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploadBatchID         uuid.UUID `gorm:"index"`
	TransactionDate       time.Time `gorm:"column:transaction_date"`
	Description           string
	CustomerName          string
	Entries               []TransactionEntry `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	Status                string             `gorm:"index"`
	MappedDebitAccountID  *uuid.UUID
	MappedCreditAccountID *uuid.UUID
	ConfidenceScore       float64
	MappingDetails        datatypes.JSON
	CreatedAt             time.Time
}

type TransactionEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"index"`
	AccountNumber string
	Type          EntryType
	Amount        string
}

// AmountValue parses the decimal amount string. Amounts must be finite and
// non-negative.
func (e *TransactionEntry) AmountValue() (float64, error) {
	v, err := strconv.ParseFloat(e.Amount, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid amount %q", e.Amount)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("non-finite amount %q", e.Amount)
	}
	if v < 0 {
		return 0, errors.Errorf("negative amount %q", e.Amount)
	}
	return v, nil
}

// DebitEntry returns the transaction's debit entry, or nil if absent.
func (t *Transaction) DebitEntry() *TransactionEntry {
	return t.entryOfType(EntryTypeDebit)
}

// CreditEntry returns the transaction's credit entry, or nil if absent.
func (t *Transaction) CreditEntry() *TransactionEntry {
	return t.entryOfType(EntryTypeCredit)
}

func (t *Transaction) entryOfType(et EntryType) *TransactionEntry {
	for i := range t.Entries {
		if t.Entries[i].Type == et {
			return &t.Entries[i]
		}
	}
	return nil
}

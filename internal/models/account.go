package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

type Account struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"uniqueIndex"`
	Name        string    `gorm:"index"`
	Description string
	Type        AccountType `gorm:"index"`
	Subtype     string
	IsActive    bool `gorm:"index"`
	CreatedAt   time.Time
}

// SearchText is the text the pattern builders index an account under.
func (a *Account) SearchText() string {
	return a.Name + " " + a.Description + " " + string(a.Type) + " " + a.Subtype
}

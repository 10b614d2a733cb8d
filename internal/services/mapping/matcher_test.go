package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

func newTestMatcher(accounts []models.Account, standard *models.AccountingStandard) *Matcher {
	proc := textproc.NewProcessor()
	m := NewMatcher(proc, textproc.NewCalculator(proc), zerolog.Nop())
	m.BuildPatterns(accounts, standard)
	return m
}

func account(code, name string, accountType models.AccountType) models.Account {
	return models.Account{
		ID:       uuid.New(),
		Code:     code,
		Name:     name,
		Type:     accountType,
		IsActive: true,
	}
}

func entry(accountNumber string, entryType models.EntryType, amount string) *models.TransactionEntry {
	return &models.TransactionEntry{
		ID:            uuid.New(),
		AccountNumber: accountNumber,
		Type:          entryType,
		Amount:        amount,
	}
}

func TestExactCodeMatch(t *testing.T) {
	accounts := []models.Account{
		account("1000", "Cash", models.AccountTypeAsset),
		account("5200", "Office Supplies", models.AccountTypeExpense),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())

	tx := &models.Transaction{ID: uuid.New(), Description: "Payment for office supplies"}
	got := m.FindMatchingAccount(entry("5200", models.EntryTypeDebit, "500.00"), tx)
	if got == nil || got.Code != "5200" {
		t.Fatalf("FindMatchingAccount = %+v, want account 5200", got)
	}
}

func TestExactMatchWinsOverFuzzy(t *testing.T) {
	accounts := []models.Account{
		account("0100", "Petty Cash", models.AccountTypeAsset),
		account("100", "Cash", models.AccountTypeAsset),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())

	tx := &models.Transaction{ID: uuid.New()}
	got := m.FindMatchingAccount(entry("100", models.EntryTypeDebit, "10"), tx)
	if got == nil || got.Code != "100" {
		t.Fatalf("FindMatchingAccount = %+v, want exact account 100 over fuzzy 0100", got)
	}
}

func TestFuzzyCodeMatch(t *testing.T) {
	accounts := []models.Account{
		account("0100", "Petty Cash", models.AccountTypeAsset),
		account("0200", "Receivables", models.AccountTypeAsset),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())
	tx := &models.Transaction{ID: uuid.New()}

	tests := []struct {
		input    string
		wantCode string
	}{
		{"100", "0100"},
		{"0100", "0100"},
		{"00100", "0100"},
		{"0300", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := m.FindMatchingAccount(entry(tt.input, models.EntryTypeDebit, "10"), tx)
			switch {
			case tt.wantCode == "" && got != nil:
				t.Errorf("input %q matched %q, want no match", tt.input, got.Code)
			case tt.wantCode != "" && (got == nil || got.Code != tt.wantCode):
				t.Errorf("input %q = %+v, want code %q", tt.input, got, tt.wantCode)
			}
		})
	}
}

func TestEmptyNormalizedCodeNeverMatches(t *testing.T) {
	accounts := []models.Account{
		account("000", "Suspense", models.AccountTypeAsset),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())
	tx := &models.Transaction{ID: uuid.New()}

	if got := m.FindMatchingAccount(entry("ABC", models.EntryTypeDebit, "10"), tx); got != nil {
		t.Errorf("empty-normalized input matched %q, want no match", got.Code)
	}
}

func TestDescriptionMatch(t *testing.T) {
	supplies := models.Account{
		ID:          uuid.New(),
		Code:        "5200",
		Name:        "Office Supplies",
		Description: "Expenses for office supplies and stationery",
		Type:        models.AccountTypeExpense,
		IsActive:    true,
	}
	accounts := []models.Account{
		account("1000", "Cash", models.AccountTypeAsset),
		supplies,
	}
	m := newTestMatcher(accounts, models.DefaultStandard())

	tx := &models.Transaction{ID: uuid.New(), Description: "office supplies expenses stationery"}
	got := m.FindMatchingAccount(entry("9999", models.EntryTypeDebit, "50"), tx)
	if got == nil || got.Code != "5200" {
		t.Fatalf("FindMatchingAccount = %+v, want description match on 5200", got)
	}
}

func TestSignConventionRejection(t *testing.T) {
	accounts := []models.Account{
		account("5200", "Office Supplies", models.AccountTypeExpense),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())
	tx := &models.Transaction{ID: uuid.New(), Description: "office supplies"}

	// A credit entry against a debit-normal expense account is rejected even
	// on an exact code hit.
	if got := m.FindMatchingAccount(entry("5200", models.EntryTypeCredit, "50"), tx); got != nil {
		t.Errorf("sign-convention gate returned %q, want no match", got.Code)
	}
	if got := m.FindMatchingAccount(entry("5200", models.EntryTypeDebit, "50"), tx); got == nil {
		t.Error("debit entry against debit-normal account should match")
	}
}

func TestMissingSignConventionIsNoMatch(t *testing.T) {
	accounts := []models.Account{
		account("7000", "Weird", "exotic"),
	}
	m := newTestMatcher(accounts, models.DefaultStandard())
	tx := &models.Transaction{ID: uuid.New()}

	if got := m.FindMatchingAccount(entry("7000", models.EntryTypeDebit, "10"), tx); got != nil {
		t.Errorf("account type without convention matched %q, want no match", got.Code)
	}
}

func TestInactiveAccountsAreSkipped(t *testing.T) {
	inactive := account("5200", "Office Supplies", models.AccountTypeExpense)
	inactive.IsActive = false
	m := newTestMatcher([]models.Account{inactive}, models.DefaultStandard())
	tx := &models.Transaction{ID: uuid.New(), Description: "office supplies"}

	if got := m.FindMatchingAccount(entry("5200", models.EntryTypeDebit, "50"), tx); got != nil {
		t.Errorf("inactive account matched %q, want no match", got.Code)
	}
}

func TestAmountRangeScore(t *testing.T) {
	tests := []struct {
		accountType models.AccountType
		amount      float64
		want        float64
	}{
		{models.AccountTypeAsset, 500, 1.0},
		{models.AccountTypeAsset, 5000, 0.8},
		{models.AccountTypeAsset, 50000, 0.6},
		{models.AccountTypeAsset, 500000, 0.4},
		{models.AccountTypeExpense, 50, 1.0},
		{models.AccountTypeExpense, 500, 0.8},
		{models.AccountTypeExpense, 5000, 0.6},
		{models.AccountTypeExpense, 50000, 0.4},
		{"exotic", 500, 0.5},
	}
	for _, tt := range tests {
		if got := amountRangeScore(tt.accountType, tt.amount); got != tt.want {
			t.Errorf("amountRangeScore(%s, %v) = %v, want %v", tt.accountType, tt.amount, got, tt.want)
		}
	}
}

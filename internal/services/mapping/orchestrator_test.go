package mapping

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

func newTestOrchestrator() *Orchestrator {
	proc := textproc.NewProcessor()
	calc := textproc.NewCalculator(proc)
	extractor := NewFeatureExtractor(proc)
	return NewOrchestrator(
		NewPatternBuilder(proc, calc, zerolog.Nop()),
		NewMatcher(proc, calc, zerolog.Nop()),
		NewPatternMatcher(proc, calc, zerolog.Nop()),
		NewRAGMapper(proc, calc, extractor, zerolog.Nop()),
		calc,
		DefaultThresholds(),
		zerolog.Nop(),
	)
}

func chartOfAccounts() []models.Account {
	return []models.Account{
		{ID: uuid.New(), Code: "1000", Name: "Cash", Description: "cash on hand", Type: models.AccountTypeAsset, IsActive: true},
		{ID: uuid.New(), Code: "2000", Name: "Accounts Payable", Description: "amounts owed to vendors", Type: models.AccountTypeLiability, IsActive: true},
		{ID: uuid.New(), Code: "5200", Name: "Office Supplies", Description: "office supplies and stationery", Type: models.AccountTypeExpense, IsActive: true},
	}
}

func orchestratorTx(description, debitCode, creditCode, amount string) *models.Transaction {
	txID := uuid.New()
	return &models.Transaction{
		ID:              txID,
		Description:     description,
		TransactionDate: time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
		Entries: []models.TransactionEntry{
			{ID: uuid.New(), TransactionID: txID, AccountNumber: debitCode, Type: models.EntryTypeDebit, Amount: amount},
			{ID: uuid.New(), TransactionID: txID, AccountNumber: creditCode, Type: models.EntryTypeCredit, Amount: amount},
		},
	}
}

func TestMapBeforeInitialize(t *testing.T) {
	o := newTestOrchestrator()
	_, err := o.MapTransaction(orchestratorTx("anything", "1", "2", "10"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestEmptyChartNeverThrows(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Initialize(nil, models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	result, err := o.MapTransaction(orchestratorTx("Payment for office supplies", "5200", "1000", "500.00"))
	if err != nil {
		t.Fatalf("MapTransaction returned error: %v", err)
	}
	if result.Mapped() || result.Confidence != 0 {
		t.Errorf("empty chart should yield zero confidence, got %+v", result)
	}
}

func TestInitializeRequiresStandard(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Initialize(chartOfAccounts(), nil); err == nil {
		t.Fatal("expected an error for a nil standard")
	}
}

func TestCascadeFallsBackToMatcher(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Initialize(chartOfAccounts(), models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Exact account codes, nothing learned, description unlike any account:
	// the cascade must land on the code matcher at its fixed confidence.
	tx := orchestratorTx("zzz qqq xxx", "5200", "2000", "500.00")
	result, err := o.MapTransaction(tx)
	if err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}
	if !result.Mapped() {
		t.Fatalf("expected matcher stage to map, got %+v", result)
	}
	if result.Stage != "matcher" || result.Confidence != 0.6 {
		t.Errorf("result = stage %q confidence %v, want matcher at 0.6", result.Stage, result.Confidence)
	}
	if result.DebitAccount.Code != "5200" || result.CreditAccount.Code != "2000" {
		t.Errorf("mapped %s/%s, want 5200/2000", result.DebitAccount.Code, result.CreditAccount.Code)
	}
}

func TestCascadeUsesLearnedPatterns(t *testing.T) {
	o := newTestOrchestrator()
	accounts := chartOfAccounts()
	if err := o.Initialize(accounts, models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	supplies := accounts[2]
	payable := accounts[1]
	o.LearnFromMatch(orchestratorTx("Quarterly consulting retainer", "", "", "100"), supplies.ID, payable.ID)

	// The entry codes resolve nowhere and the description shares no tokens
	// with the chart, so only the learned stage can map this.
	tx := orchestratorTx("Quarterly consulting retainer", "", "", "100")
	result, err := o.MapTransaction(tx)
	if err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}
	if result.Stage != "pattern" {
		t.Fatalf("stage = %q, want pattern", result.Stage)
	}
	if result.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95 for an exact historical hit", result.Confidence)
	}
	if result.DebitAccount.ID != supplies.ID || result.CreditAccount.ID != payable.ID {
		t.Error("learned pair not returned")
	}
}

func TestNeverSameAccountBothSides(t *testing.T) {
	o := newTestOrchestrator()
	accounts := chartOfAccounts()
	if err := o.Initialize(accounts, models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Poison the learned table with an identical pair; the cascade must not
	// return it.
	supplies := accounts[2]
	o.LearnFromMatch(orchestratorTx("Self dealing", "", "", "10"), supplies.ID, supplies.ID)

	result, err := o.MapTransaction(orchestratorTx("Self dealing", "", "", "10"))
	if err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}
	if result.Mapped() && result.DebitAccount.ID == result.CreditAccount.ID {
		t.Error("orchestrator returned the same account for both sides")
	}
}

func TestConfidenceAlwaysInUnitInterval(t *testing.T) {
	o := newTestOrchestrator()
	accounts := chartOfAccounts()
	if err := o.Initialize(accounts, models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	o.LearnFromMatch(orchestratorTx("Office supplies order", "", "", "100"), accounts[2].ID, accounts[1].ID)

	txs := []*models.Transaction{
		orchestratorTx("office supplies and stationery", "5200", "2000", "500.00"),
		orchestratorTx("Office supplies order", "", "", "100"),
		orchestratorTx("zzz", "", "", "10"),
		orchestratorTx("", "", "", "abc"),
	}
	for _, tx := range txs {
		result, err := o.MapTransaction(tx)
		if err != nil {
			t.Fatalf("MapTransaction failed: %v", err)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("confidence %v out of [0,1] for %q", result.Confidence, tx.Description)
		}
	}
}

func TestMetricsSummary(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Initialize(chartOfAccounts(), models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := o.MapTransaction(orchestratorTx("zzz", "5200", "2000", "10")); err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}
	if _, err := o.MapTransaction(orchestratorTx("unmappable", "", "", "10")); err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}

	summary := o.MetricsSummary()
	if summary.TotalAttempts != 2 {
		t.Errorf("total attempts = %d, want 2", summary.TotalAttempts)
	}
	if summary.SuccessfulAttempts != 1 || summary.FailedAttempts != 1 {
		t.Errorf("summary = %+v, want 1 successful and 1 failed", summary)
	}
}

func TestStatsPassthrough(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Initialize(chartOfAccounts(), models.DefaultStandard()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := o.PatternStats().PatternCount; got != 3 {
		t.Errorf("pattern count = %d, want 3", got)
	}
	if got := o.VocabularySize(); got == 0 {
		t.Error("rag vocabulary should not be empty")
	}
	// Description matching warms the memo cache.
	if _, err := o.MapTransaction(orchestratorTx("office supplies", "", "", "10")); err != nil {
		t.Fatalf("MapTransaction failed: %v", err)
	}
	if got := o.CacheSize(); got == 0 {
		t.Error("similarity cache should have entries after a description match pass")
	}
}

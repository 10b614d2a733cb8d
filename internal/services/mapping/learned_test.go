package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

func newTestPatternMatcher() *PatternMatcher {
	proc := textproc.NewProcessor()
	return NewPatternMatcher(proc, textproc.NewCalculator(proc), zerolog.Nop())
}

func learnedTx(description, vendor string) *models.Transaction {
	return &models.Transaction{
		ID:           uuid.New(),
		Description:  description,
		CustomerName: vendor,
	}
}

func TestHistoricalExactMatch(t *testing.T) {
	m := newTestPatternMatcher()
	debitID, creditID := uuid.New(), uuid.New()

	m.LearnFromTransaction(learnedTx("Office Depot supplies", ""), debitID, creditID)

	debits, credits := m.FindMatches(learnedTx("Office Depot supplies", ""))
	if len(debits) == 0 || len(credits) == 0 {
		t.Fatal("expected candidates after learning")
	}
	if debits[0].AccountID != debitID || debits[0].Confidence != 0.95 {
		t.Errorf("debit head = %+v, want %s at 0.95", debits[0], debitID)
	}
	if credits[0].AccountID != creditID || credits[0].Confidence != 0.95 {
		t.Errorf("credit head = %+v, want %s at 0.95", credits[0], creditID)
	}

	// Normalization makes the hit case- and punctuation-insensitive.
	debits, _ = m.FindMatches(learnedTx("office depot, SUPPLIES!", ""))
	if len(debits) == 0 || debits[0].Confidence != 0.95 {
		t.Errorf("normalized description should still hit exactly, got %+v", debits)
	}
}

func TestHistoricalLastWriteWins(t *testing.T) {
	m := newTestPatternMatcher()
	first, second := uuid.New(), uuid.New()
	creditID := uuid.New()

	m.LearnFromTransaction(learnedTx("Monthly rent", ""), first, creditID)
	m.LearnFromTransaction(learnedTx("Monthly rent", ""), second, creditID)

	debits, _ := m.FindMatches(learnedTx("Monthly rent", ""))
	if len(debits) == 0 || debits[0].AccountID != second {
		t.Errorf("debit head = %+v, want overwritten pair %s", debits, second)
	}
}

func TestVendorMatch(t *testing.T) {
	m := newTestPatternMatcher()
	debitID, creditID := uuid.New(), uuid.New()

	m.LearnFromTransaction(learnedTx("Some unrelated description", "Acme Corp"), debitID, creditID)

	debits, credits := m.FindMatches(learnedTx("Completely different text", "Acme Corp"))
	if len(debits) == 0 || len(credits) == 0 {
		t.Fatal("expected vendor candidates")
	}
	if debits[0].Source != "vendor" || debits[0].Confidence != 0.9 {
		t.Errorf("debit head = %+v, want vendor hit at 0.9", debits[0])
	}
}

func TestFuzzyHistoricalMatch(t *testing.T) {
	m := newTestPatternMatcher()
	debitID, creditID := uuid.New(), uuid.New()

	m.LearnFromTransaction(learnedTx("Payment for office supplies", ""), debitID, creditID)

	debits, _ := m.FindMatches(learnedTx("Payment for office suppl", ""))
	if len(debits) == 0 {
		t.Fatal("expected a fuzzy candidate")
	}
	head := debits[0]
	if head.Source != "fuzzy" {
		t.Fatalf("head source = %q, want fuzzy", head.Source)
	}
	if head.AccountID != debitID {
		t.Errorf("fuzzy candidate account = %s, want %s", head.AccountID, debitID)
	}
	// Fuzzy confidence is similarity x 0.85, strictly below an exact hit.
	if head.Confidence <= 0.7*0.85 || head.Confidence >= 0.95 {
		t.Errorf("fuzzy confidence = %v, want in (0.595, 0.95)", head.Confidence)
	}
}

func TestFrequencyFallback(t *testing.T) {
	m := newTestPatternMatcher()
	frequent, creditID := uuid.New(), uuid.New()

	m.LearnFromTransaction(learnedTx("Rent January", ""), frequent, creditID)
	m.LearnFromTransaction(learnedTx("Rent February", ""), frequent, uuid.New())
	m.LearnFromTransaction(learnedTx("Rent March", ""), frequent, uuid.New())

	// A description nothing resembles still yields frequency candidates.
	debits, credits := m.FindMatches(learnedTx("zzz qqq xxx", ""))
	if len(debits) == 0 || len(credits) == 0 {
		t.Fatal("expected frequency fallback candidates")
	}
	if debits[0].Source != "frequency" {
		t.Fatalf("head source = %q, want frequency", debits[0].Source)
	}
	if debits[0].AccountID != frequent {
		t.Errorf("head account = %s, want most frequent %s", debits[0].AccountID, frequent)
	}
	// 0.5 + 3/(2*3) = 1.0 for the dominant account.
	if debits[0].Confidence != 1.0 {
		t.Errorf("head confidence = %v, want 1.0", debits[0].Confidence)
	}
	for _, c := range debits {
		if c.Confidence < 0 || c.Confidence > 1 {
			t.Errorf("confidence %v out of [0,1]", c.Confidence)
		}
	}
}

func TestEmptyTablesYieldNothing(t *testing.T) {
	m := newTestPatternMatcher()
	debits, credits := m.FindMatches(learnedTx("anything", "any vendor"))
	if len(debits) != 0 || len(credits) != 0 {
		t.Errorf("expected no candidates from empty tables, got %d/%d", len(debits), len(credits))
	}
}

func TestLearnedStats(t *testing.T) {
	m := newTestPatternMatcher()
	m.LearnFromTransaction(learnedTx("Rent", "Landlord LLC"), uuid.New(), uuid.New())

	stats := m.Stats()
	if stats.HistoricalPatterns != 1 || stats.VendorPatterns != 1 || stats.TrackedAccounts != 2 {
		t.Errorf("stats = %+v, want 1/1/2", stats)
	}
}

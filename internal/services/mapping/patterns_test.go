package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

func newTestPatternBuilder() *PatternBuilder {
	proc := textproc.NewProcessor()
	return NewPatternBuilder(proc, textproc.NewCalculator(proc), zerolog.Nop())
}

func TestBuildPatterns(t *testing.T) {
	builder := newTestPatternBuilder()
	accounts := []models.Account{
		{ID: uuid.New(), Code: "1000", Name: "Cash", Type: models.AccountTypeAsset},
		{ID: uuid.New(), Code: "5200", Name: "Office Supplies", Description: "stationery and office materials", Type: models.AccountTypeExpense},
	}

	builder.BuildPatterns(accounts)

	stats := builder.Stats()
	if stats.PatternCount != 2 {
		t.Errorf("pattern count = %d, want 2", stats.PatternCount)
	}
	if stats.VocabularySize == 0 {
		t.Error("vocabulary should not be empty")
	}
}

func TestFindSimilarAccounts(t *testing.T) {
	builder := newTestPatternBuilder()
	supplies := models.Account{
		ID: uuid.New(), Code: "5200", Name: "Office Supplies",
		Description: "stationery and office materials", Type: models.AccountTypeExpense,
	}
	cash := models.Account{
		ID: uuid.New(), Code: "1000", Name: "Cash",
		Description: "cash on hand", Type: models.AccountTypeAsset,
	}
	rent := models.Account{
		ID: uuid.New(), Code: "5100", Name: "Rent Expense",
		Description: "monthly office rent", Type: models.AccountTypeExpense,
	}
	builder.BuildPatterns([]models.Account{cash, rent, supplies})

	t.Run("ranks by similarity", func(t *testing.T) {
		scores := builder.FindSimilarAccounts("office supplies stationery", "", 5)
		if len(scores) == 0 {
			t.Fatal("expected scored accounts")
		}
		if scores[0].AccountID != supplies.ID {
			t.Errorf("top account = %s, want office supplies", scores[0].AccountID)
		}
		for i := 1; i < len(scores); i++ {
			if scores[i].Similarity > scores[i-1].Similarity {
				t.Error("scores should be non-increasing")
			}
		}
	})

	t.Run("type filter", func(t *testing.T) {
		scores := builder.FindSimilarAccounts("office", models.AccountTypeAsset, 5)
		for _, s := range scores {
			if s.AccountID != cash.ID {
				t.Errorf("type filter leaked account %s", s.AccountID)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		scores := builder.FindSimilarAccounts("office", "", 1)
		if len(scores) > 1 {
			t.Errorf("got %d scores, want at most 1", len(scores))
		}
	})

	t.Run("unbuilt builder returns nothing", func(t *testing.T) {
		fresh := newTestPatternBuilder()
		if scores := fresh.FindSimilarAccounts("office", "", 5); scores != nil {
			t.Errorf("expected nil before BuildPatterns, got %v", scores)
		}
	})
}

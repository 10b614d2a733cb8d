package mapping

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

const (
	signBoostMatch    = 1.2
	signBoostMismatch = 0.8
)

// RAGMapper ranks accounts by bag-of-words similarity between a transaction
// embedding and per-account embeddings built over its own vocabulary. The
// vocabulary is independent of the PatternBuilder's even though the
// construction is the same; the two components never share vectors.
type RAGMapper struct {
	proc      *textproc.Processor
	calc      *textproc.Calculator
	extractor *FeatureExtractor
	log       zerolog.Logger

	vocab      *textproc.Vocabulary
	accounts   []models.Account
	embeddings map[uuid.UUID][]float64
	standard   *models.AccountingStandard
}

func NewRAGMapper(proc *textproc.Processor, calc *textproc.Calculator, extractor *FeatureExtractor, log zerolog.Logger) *RAGMapper {
	return &RAGMapper{proc: proc, calc: calc, extractor: extractor, log: log}
}

// BuildIndex rebuilds the vocabulary and per-account embeddings from the
// chart of accounts. All-or-nothing; serialized against reads by the caller.
func (r *RAGMapper) BuildIndex(accounts []models.Account, standard *models.AccountingStandard) {
	start := time.Now()

	texts := make([]string, 0, len(accounts))
	for i := range accounts {
		texts = append(texts, accounts[i].SearchText())
	}
	vocab := r.proc.BuildVocabulary(texts)

	embeddings := make(map[uuid.UUID][]float64, len(accounts))
	for i := range accounts {
		embeddings[accounts[i].ID] = r.proc.CreateVector(accounts[i].SearchText(), vocab)
	}

	r.vocab = vocab
	r.accounts = append([]models.Account(nil), accounts...)
	r.embeddings = embeddings
	r.standard = standard

	r.log.Info().
		Int("accounts", len(accounts)).
		Int("vocabulary_size", vocab.Size()).
		Dur("duration", time.Since(start)).
		Msg("rag index rebuilt")
}

// VocabularySize reports the size of the mapper's own vocabulary.
func (r *RAGMapper) VocabularySize() int {
	if r.vocab == nil {
		return 0
	}
	return r.vocab.Size()
}

// MapTransaction embeds the transaction and picks the highest-scoring
// debit-normal account as the debit side and, excluded from that pick, the
// highest-scoring credit-normal account as the credit side. Confidence is the
// minimum of the two scores; zero when either side stays unfilled or the
// transaction lacks a debit or credit entry.
func (r *RAGMapper) MapTransaction(tx *models.Transaction) models.MappingResult {
	result := models.MappingResult{Stage: "rag"}
	if r.vocab == nil || len(r.accounts) == 0 {
		return result
	}

	debitEntry := tx.DebitEntry()
	creditEntry := tx.CreditEntry()
	if debitEntry == nil || creditEntry == nil {
		r.log.Warn().
			Err(ErrMalformedTransaction).
			Str("transaction_id", tx.ID.String()).
			Msg("skipping rag mapping")
		return result
	}

	vec := r.proc.CreateVector(r.embedText(tx), r.vocab)

	// Amounts are non-negative by the data model, so the mismatch branch for
	// negative polarity is effectively dead; kept to keep the boost rule
	// symmetric.
	amount, err := debitEntry.AmountValue()
	if err != nil {
		amount = 0
	}

	var bestDebit, bestCredit *models.Account
	var bestDebitScore, bestCreditScore float64
	for i := range r.accounts {
		acc := &r.accounts[i]
		normal, ok := r.standard.NormalBalance(acc.Type)
		if !ok {
			continue
		}
		base, err := r.calc.Cosine(vec, r.embeddings[acc.ID])
		if err != nil {
			continue
		}
		score := base * signBoost(amount, normal)
		switch normal {
		case models.EntryTypeDebit:
			if score > bestDebitScore {
				bestDebit = acc
				bestDebitScore = score
			}
		case models.EntryTypeCredit:
			if score > bestCreditScore {
				bestCredit = acc
				bestCreditScore = score
			}
		}
	}

	if bestDebit == nil || bestCredit == nil || bestDebit.ID == bestCredit.ID {
		return result
	}

	result.DebitAccount = bestDebit
	result.CreditAccount = bestCredit
	result.Confidence = clamp01(min64(bestDebitScore, bestCreditScore))
	return result
}

func (r *RAGMapper) embedText(tx *models.Transaction) string {
	parts := []string{tx.Description, tx.CustomerName}
	for _, f := range r.extractor.Extract(tx) {
		parts = append(parts, f.Type+":"+f.Value)
	}
	return strings.Join(parts, " ")
}

func signBoost(amount float64, normal models.EntryType) float64 {
	polarity := models.EntryTypeDebit
	if amount < 0 {
		polarity = models.EntryTypeCredit
	}
	if polarity == normal {
		return signBoostMatch
	}
	return signBoostMismatch
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

package mapping

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

// AccountPattern is the per-account derived artifact: top keywords, a
// term-frequency vector over the shared vocabulary, and the source text it
// was built from.
type AccountPattern struct {
	AccountID   uuid.UUID
	Keywords    []string
	Vector      []float64
	Description string
}

type AccountScore struct {
	AccountID  uuid.UUID
	Similarity float64
}

type PatternStats struct {
	PatternCount   int `json:"pattern_count"`
	VocabularySize int `json:"vocabulary_size"`
}

// PatternBuilder owns the shared account vocabulary and one pattern per
// account. Rebuilds are all-or-nothing: derived state is swapped in a single
// assignment once fully computed, never left partially stale. Rebuilds must
// be serialized against reads by the caller.
type PatternBuilder struct {
	proc *textproc.Processor
	calc *textproc.Calculator
	log  zerolog.Logger

	vocab    *textproc.Vocabulary
	accounts []models.Account
	patterns map[uuid.UUID]*AccountPattern
}

func NewPatternBuilder(proc *textproc.Processor, calc *textproc.Calculator, log zerolog.Logger) *PatternBuilder {
	return &PatternBuilder{proc: proc, calc: calc, log: log}
}

// BuildPatterns rebuilds the vocabulary from every account's name,
// description, type and subtype, then computes one pattern per account.
func (b *PatternBuilder) BuildPatterns(accounts []models.Account) {
	start := time.Now()

	texts := make([]string, 0, len(accounts))
	for i := range accounts {
		texts = append(texts, accounts[i].SearchText())
	}
	vocab := b.proc.BuildVocabulary(texts)

	patterns := make(map[uuid.UUID]*AccountPattern, len(accounts))
	for i := range accounts {
		text := accounts[i].SearchText()
		patterns[accounts[i].ID] = &AccountPattern{
			AccountID:   accounts[i].ID,
			Keywords:    b.proc.KeyPhrases(text),
			Vector:      b.proc.CreateVector(text, vocab),
			Description: text,
		}
	}

	b.vocab = vocab
	b.accounts = append([]models.Account(nil), accounts...)
	b.patterns = patterns

	b.log.Info().
		Int("accounts", len(accounts)).
		Int("vocabulary_size", vocab.Size()).
		Dur("duration", time.Since(start)).
		Msg("account patterns rebuilt")
}

// FindSimilarAccounts vectorizes text against the current vocabulary and
// cosine-ranks all patterns, optionally filtered by account type. Ties keep
// the original account order. BuildPatterns must have completed first.
func (b *PatternBuilder) FindSimilarAccounts(text string, accountType models.AccountType, limit int) []AccountScore {
	if b.vocab == nil {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}
	vec := b.proc.CreateVector(text, b.vocab)

	scores := make([]AccountScore, 0, len(b.accounts))
	for i := range b.accounts {
		acc := &b.accounts[i]
		if accountType != "" && acc.Type != accountType {
			continue
		}
		pattern, ok := b.patterns[acc.ID]
		if !ok {
			continue
		}
		sim, err := b.calc.Cosine(vec, pattern.Vector)
		if err != nil {
			b.log.Warn().Err(err).Str("account_id", acc.ID.String()).Msg("skipping account with stale pattern vector")
			continue
		}
		scores = append(scores, AccountScore{AccountID: acc.ID, Similarity: sim})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

func (b *PatternBuilder) Stats() PatternStats {
	return PatternStats{
		PatternCount:   len(b.patterns),
		VocabularySize: b.VocabularySize(),
	}
}

func (b *PatternBuilder) VocabularySize() int {
	if b.vocab == nil {
		return 0
	}
	return b.vocab.Size()
}

package mapping

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

// Thresholds are the cascade acceptance bars. They are deliberate
// configuration, not tuned constants baked into the stages.
type Thresholds struct {
	RAGAcceptance     float64
	PatternAcceptance float64
	MatcherConfidence float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RAGAcceptance:     0.8,
		PatternAcceptance: 0.7,
		MatcherConfidence: 0.6,
	}
}

// Orchestrator runs the mapping cascade: RAG similarity first, learned
// patterns second, code/description matching last. The first stage whose
// confidence clears its bar wins. Stage failures never escape: they are
// logged and treated as zero confidence so one bad transaction cannot abort
// a batch.
type Orchestrator struct {
	builder        *PatternBuilder
	matcher        *Matcher
	patternMatcher *PatternMatcher
	rag            *RAGMapper
	calc           *textproc.Calculator
	log            zerolog.Logger

	thresholds Thresholds
	metrics    Metrics

	accounts    map[uuid.UUID]*models.Account
	initialized bool
}

func NewOrchestrator(
	builder *PatternBuilder,
	matcher *Matcher,
	patternMatcher *PatternMatcher,
	rag *RAGMapper,
	calc *textproc.Calculator,
	thresholds Thresholds,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		builder:        builder,
		matcher:        matcher,
		patternMatcher: patternMatcher,
		rag:            rag,
		calc:           calc,
		log:            log,
		thresholds:     thresholds,
	}
}

// Initialize rebuilds every stage index from the chart of accounts and the
// accounting standard. It must complete before any MapTransaction call.
// Learned pattern tables survive re-initialization; only derived account
// state is rebuilt.
func (o *Orchestrator) Initialize(accounts []models.Account, standard *models.AccountingStandard) error {
	if standard == nil {
		return ErrMissingSignConvention
	}
	start := time.Now()

	o.builder.BuildPatterns(accounts)
	o.matcher.BuildPatterns(accounts, standard)
	o.rag.BuildIndex(accounts, standard)

	owned := append([]models.Account(nil), accounts...)
	index := make(map[uuid.UUID]*models.Account, len(owned))
	for i := range owned {
		index[owned[i].ID] = &owned[i]
	}
	o.accounts = index
	o.initialized = true

	o.log.Info().
		Int("accounts", len(accounts)).
		Str("standard", standard.Name).
		Dur("duration", time.Since(start)).
		Msg("mapping orchestrator initialized")
	return nil
}

// MapTransaction runs the cascade. The only error it returns is
// ErrNotInitialized; everything else degrades to a zero-confidence result.
func (o *Orchestrator) MapTransaction(tx *models.Transaction) (models.MappingResult, error) {
	if !o.initialized {
		return models.MappingResult{}, ErrNotInitialized
	}

	start := time.Now()
	result := o.runCascade(tx)
	duration := time.Since(start)
	o.metrics.Record(result.Mapped(), duration)

	o.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("stage", result.Stage).
		Float64("confidence", result.Confidence).
		Dur("duration", duration).
		Msg("mapping attempt finished")
	return result, nil
}

func (o *Orchestrator) runCascade(tx *models.Transaction) models.MappingResult {
	if res := o.tryStage("rag", tx, o.rag.MapTransaction); res.Mapped() && res.Confidence > o.thresholds.RAGAcceptance {
		return res
	}
	if res := o.tryStage("pattern", tx, o.patternMapping); res.Mapped() && res.Confidence > o.thresholds.PatternAcceptance {
		return res
	}
	if res := o.tryStage("matcher", tx, o.matcherMapping); res.Mapped() {
		return res
	}
	return models.MappingResult{Stage: "unmapped"}
}

// tryStage isolates one stage: an internal panic is logged and converted to
// a zero-confidence result, keeping the cascade alive.
func (o *Orchestrator) tryStage(name string, tx *models.Transaction, fn func(*models.Transaction) models.MappingResult) (result models.MappingResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Str("stage", name).
				Str("transaction_id", tx.ID.String()).
				Interface("panic", r).
				Msg("mapping stage failed")
			result = models.MappingResult{Stage: name}
		}
	}()
	return fn(tx)
}

// patternMapping pairs the heads of the learned candidate lists. Confidence
// is the minimum of the two sides; the stage yields nothing unless both
// lists are non-empty and resolve to distinct known accounts.
func (o *Orchestrator) patternMapping(tx *models.Transaction) models.MappingResult {
	result := models.MappingResult{Stage: "pattern"}

	debits, credits := o.patternMatcher.FindMatches(tx)
	if len(debits) == 0 || len(credits) == 0 {
		return result
	}

	best := debits[0]
	for _, c := range credits {
		if c.AccountID == best.AccountID {
			continue
		}
		debitAcc, okD := o.accounts[best.AccountID]
		creditAcc, okC := o.accounts[c.AccountID]
		if !okD || !okC {
			return result
		}
		result.DebitAccount = debitAcc
		result.CreditAccount = creditAcc
		result.Confidence = clamp01(min64(best.Confidence, c.Confidence))
		return result
	}
	return result
}

// matcherMapping resolves both entries independently; it only counts when
// both sides resolve, at a fixed confidence.
func (o *Orchestrator) matcherMapping(tx *models.Transaction) models.MappingResult {
	result := models.MappingResult{Stage: "matcher"}

	debitAcc := o.matcher.FindMatchingAccount(tx.DebitEntry(), tx)
	creditAcc := o.matcher.FindMatchingAccount(tx.CreditEntry(), tx)
	if debitAcc == nil || creditAcc == nil || debitAcc.ID == creditAcc.ID {
		return result
	}

	result.DebitAccount = debitAcc
	result.CreditAccount = creditAcc
	result.Confidence = o.thresholds.MatcherConfidence
	return result
}

// LearnFromMatch feeds one confirmed mapping back into the learned tables.
func (o *Orchestrator) LearnFromMatch(tx *models.Transaction, debitAccountID, creditAccountID uuid.UUID) {
	o.patternMatcher.LearnFromTransaction(tx, debitAccountID, creditAccountID)
}

func (o *Orchestrator) PatternStats() PatternStats { return o.builder.Stats() }

func (o *Orchestrator) LearnedStats() LearnedStats { return o.patternMatcher.Stats() }

func (o *Orchestrator) VocabularySize() int { return o.rag.VocabularySize() }

func (o *Orchestrator) CacheSize() int { return o.calc.CacheSize() }

func (o *Orchestrator) MetricsSummary() MetricsSummary { return o.metrics.Summary() }

func (o *Orchestrator) FindSimilarAccounts(text string, accountType models.AccountType, limit int) []AccountScore {
	return o.builder.FindSimilarAccounts(text, accountType, limit)
}

package mapping

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

const (
	historicalConfidence    = 0.95
	vendorConfidence        = 0.9
	fuzzySimilarityFloor    = 0.7
	fuzzyConfidenceDiscount = 0.85
)

type AccountPair struct {
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
}

// Candidate is one ranked suggestion for a single side of an entry.
type Candidate struct {
	AccountID  uuid.UUID
	Confidence float64
	Source     string
}

type LearnedStats struct {
	HistoricalPatterns int `json:"historical_patterns"`
	VendorPatterns     int `json:"vendor_patterns"`
	TrackedAccounts    int `json:"tracked_accounts"`
}

// PatternMatcher learns description and vendor associations from confirmed
// mappings. All three tables start empty and grow only through
// LearnFromTransaction; entries are last-write-wins, never merged. Learning
// must be serialized against concurrent reads by the caller; the internal
// lock keeps individual operations consistent.
type PatternMatcher struct {
	proc *textproc.Processor
	calc *textproc.Calculator
	log  zerolog.Logger

	mu         sync.RWMutex
	historical map[string]AccountPair
	vendors    map[string]AccountPair
	usage      map[uuid.UUID]int
}

func NewPatternMatcher(proc *textproc.Processor, calc *textproc.Calculator, log zerolog.Logger) *PatternMatcher {
	return &PatternMatcher{
		proc:       proc,
		calc:       calc,
		log:        log,
		historical: make(map[string]AccountPair),
		vendors:    make(map[string]AccountPair),
		usage:      make(map[uuid.UUID]int),
	}
}

func (m *PatternMatcher) normalize(text string) string {
	return strings.Join(m.proc.ProcessText(text), " ")
}

// LearnFromTransaction records a confirmed (transaction, debit, credit)
// triple in the historical, vendor and usage tables.
func (m *PatternMatcher) LearnFromTransaction(tx *models.Transaction, debitAccountID, creditAccountID uuid.UUID) {
	pair := AccountPair{DebitAccountID: debitAccountID, CreditAccountID: creditAccountID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if key := m.normalize(tx.Description); key != "" {
		m.historical[key] = pair
	}
	if vendor := m.normalize(tx.CustomerName); vendor != "" {
		m.vendors[vendor] = pair
	}
	m.usage[debitAccountID]++
	m.usage[creditAccountID]++

	m.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("debit_account_id", debitAccountID.String()).
		Str("credit_account_id", creditAccountID.String()).
		Msg("learned confirmed mapping")
}

// FindMatches assembles independent ranked debit and credit candidate lists
// from exact historical hits, exact vendor hits, fuzzy description hits and
// frequency-based fallbacks, in that precision order. Lists are assembled,
// not deduplicated; callers take the head.
func (m *PatternMatcher) FindMatches(tx *models.Transaction) (debit, credit []Candidate) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := m.normalize(tx.Description)

	if key != "" {
		if pair, ok := m.historical[key]; ok {
			debit = append(debit, Candidate{pair.DebitAccountID, historicalConfidence, "historical"})
			credit = append(credit, Candidate{pair.CreditAccountID, historicalConfidence, "historical"})
		}
	}

	if vendor := m.normalize(tx.CustomerName); vendor != "" {
		if pair, ok := m.vendors[vendor]; ok {
			debit = append(debit, Candidate{pair.DebitAccountID, vendorConfidence, "vendor"})
			credit = append(credit, Candidate{pair.CreditAccountID, vendorConfidence, "vendor"})
		}
	}

	if key != "" {
		var fuzzyDebit, fuzzyCredit []Candidate
		for stored, pair := range m.historical {
			if stored == key {
				continue
			}
			sim := m.calc.TextSimilarity(key, stored)
			if sim <= fuzzySimilarityFloor {
				continue
			}
			conf := sim * fuzzyConfidenceDiscount
			fuzzyDebit = append(fuzzyDebit, Candidate{pair.DebitAccountID, conf, "fuzzy"})
			fuzzyCredit = append(fuzzyCredit, Candidate{pair.CreditAccountID, conf, "fuzzy"})
		}
		// Map iteration order is random; rank the fuzzy block before it joins
		// the list.
		rankCandidates(fuzzyDebit)
		rankCandidates(fuzzyCredit)
		debit = append(debit, fuzzyDebit...)
		credit = append(credit, fuzzyCredit...)
	}

	for _, c := range m.frequentAccounts(5) {
		debit = append(debit, c)
		credit = append(credit, c)
	}

	return debit, credit
}

// frequentAccounts returns the most-used accounts as low-confidence
// fallbacks, scored by how dominant they are in the historical table.
func (m *PatternMatcher) frequentAccounts(limit int) []Candidate {
	if len(m.usage) == 0 {
		return nil
	}
	candidates := make([]Candidate, 0, len(m.usage))
	for id, count := range m.usage {
		conf := 0.5
		if len(m.historical) > 0 {
			conf += float64(count) / (2 * float64(len(m.historical)))
		}
		if conf > 1 {
			conf = 1
		}
		candidates = append(candidates, Candidate{AccountID: id, Confidence: conf, Source: "frequency"})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].AccountID.String() < candidates[j].AccountID.String()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].AccountID.String() < candidates[j].AccountID.String()
	})
}

func (m *PatternMatcher) Stats() LearnedStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LearnedStats{
		HistoricalPatterns: len(m.historical),
		VendorPatterns:     len(m.vendors),
		TrackedAccounts:    len(m.usage),
	}
}

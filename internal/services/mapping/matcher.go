package mapping

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

const descriptionMatchThreshold = 0.6

// Matcher resolves a single transaction entry to an account. Three stages
// are tried in order and the first hit wins: exact code match, fuzzy code
// match (digits only, leading zeros stripped), then a description-driven
// score blending pattern overlap, lexical similarity, sign-convention fit and
// amount-range fit. Every candidate is re-validated against the standard's
// sign convention before it is returned.
type Matcher struct {
	proc *textproc.Processor
	calc *textproc.Calculator
	log  zerolog.Logger

	accounts []models.Account
	standard *models.AccountingStandard
	tokens   map[uuid.UUID][]string
}

func NewMatcher(proc *textproc.Processor, calc *textproc.Calculator, log zerolog.Logger) *Matcher {
	return &Matcher{proc: proc, calc: calc, log: log}
}

// BuildPatterns precomputes the unique description tokens per account. Full
// rebuild; must be serialized against reads by the caller.
func (m *Matcher) BuildPatterns(accounts []models.Account, standard *models.AccountingStandard) {
	tokens := make(map[uuid.UUID][]string, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		seen := make(map[string]bool)
		var unique []string
		for _, tok := range m.proc.ProcessText(acc.Name + " " + acc.Description) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			unique = append(unique, tok)
		}
		tokens[acc.ID] = unique
	}
	m.accounts = append([]models.Account(nil), accounts...)
	m.standard = standard
	m.tokens = tokens
}

// FindMatchingAccount resolves entry to an account, or nil when nothing
// clears the bar. A nil result is "no match", never an error.
func (m *Matcher) FindMatchingAccount(entry *models.TransactionEntry, tx *models.Transaction) *models.Account {
	if entry == nil || m.standard == nil {
		return nil
	}
	if acc := m.exactCodeMatch(entry.AccountNumber); acc != nil {
		return m.validateSignConvention(acc, entry)
	}
	if acc := m.fuzzyCodeMatch(entry.AccountNumber); acc != nil {
		return m.validateSignConvention(acc, entry)
	}
	if acc := m.descriptionMatch(entry, tx); acc != nil {
		return m.validateSignConvention(acc, entry)
	}
	return nil
}

func (m *Matcher) exactCodeMatch(code string) *models.Account {
	for i := range m.accounts {
		if m.accounts[i].IsActive && m.accounts[i].Code == code {
			return &m.accounts[i]
		}
	}
	return nil
}

// normalizeCode strips non-digit characters and leading zeros. A code that
// normalizes to the empty string never matches anything.
func normalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

func (m *Matcher) fuzzyCodeMatch(code string) *models.Account {
	normalized := normalizeCode(code)
	if normalized == "" {
		return nil
	}
	for i := range m.accounts {
		if m.accounts[i].IsActive && normalizeCode(m.accounts[i].Code) == normalized {
			return &m.accounts[i]
		}
	}
	return nil
}

func (m *Matcher) descriptionMatch(entry *models.TransactionEntry, tx *models.Transaction) *models.Account {
	if tx == nil || tx.Description == "" {
		return nil
	}
	var best *models.Account
	bestScore := 0.0
	for i := range m.accounts {
		acc := &m.accounts[i]
		if !acc.IsActive {
			continue
		}
		score := m.scoreAccount(acc, entry, tx)
		if score > bestScore {
			best = acc
			bestScore = score
		}
	}
	if bestScore > descriptionMatchThreshold {
		return best
	}
	return nil
}

func (m *Matcher) scoreAccount(acc *models.Account, entry *models.TransactionEntry, tx *models.Transaction) float64 {
	patternTokens := m.tokens[acc.ID]
	overlap := 0.0
	if len(patternTokens) > 0 {
		descTokens := make(map[string]bool)
		for _, tok := range m.proc.ProcessText(tx.Description) {
			descTokens[tok] = true
		}
		matched := 0
		for _, tok := range patternTokens {
			if descTokens[tok] {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(patternTokens))
	}

	lexical := m.calc.TextSimilarity(tx.Description, acc.Name+" "+acc.Description)

	signBonus := 0.0
	if normal, ok := m.standard.NormalBalance(acc.Type); ok && normal == entry.Type {
		signBonus = 1.0
	}

	amountScore := 0.5
	if amount, err := entry.AmountValue(); err == nil {
		amountScore = amountRangeScore(acc.Type, amount)
	}

	return 0.4*overlap + 0.3*lexical + 0.2*signBonus + 0.1*amountScore
}

// amountRangeScore is a fixed step function over type-specific amount
// buckets: smaller amounts fit an account type better than outsized ones.
func amountRangeScore(accountType models.AccountType, amount float64) float64 {
	var thresholds [3]float64
	switch accountType {
	case models.AccountTypeAsset, models.AccountTypeLiability:
		thresholds = [3]float64{1000, 10000, 100000}
	case models.AccountTypeExpense, models.AccountTypeRevenue:
		thresholds = [3]float64{100, 1000, 10000}
	default:
		return 0.5
	}
	switch {
	case amount <= thresholds[0]:
		return 1.0
	case amount <= thresholds[1]:
		return 0.8
	case amount <= thresholds[2]:
		return 0.6
	default:
		return 0.4
	}
}

// validateSignConvention is the hard gate: the entry's type must equal the
// standard's normal balance for the account type exactly, no matter which
// stage produced the candidate. A missing convention is treated as no match.
func (m *Matcher) validateSignConvention(acc *models.Account, entry *models.TransactionEntry) *models.Account {
	normal, ok := m.standard.NormalBalance(acc.Type)
	if !ok {
		m.log.Warn().
			Err(ErrMissingSignConvention).
			Str("account_type", string(acc.Type)).
			Str("account_code", acc.Code).
			Msg("rejecting match")
		return nil
	}
	if normal != entry.Type {
		return nil
	}
	return acc
}

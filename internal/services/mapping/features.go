package mapping

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/services/textproc"
)

// Group weights. They sum to 1.0 across groups; per-feature weights within a
// group do not.
const (
	weightDescription = 0.35
	weightAmount      = 0.25
	weightVendor      = 0.20
	weightDate        = 0.15
	weightEntryType   = 0.05
)

// Feature is one weighted, typed signal extracted from a transaction.
// Consumers combine GroupWeight * Weight when scoring.
type Feature struct {
	Type        string
	Value       string
	Weight      float64
	GroupWeight float64
}

var vendorTypePatterns = []struct {
	tag string
	re  *regexp.Regexp
}{
	{"company", regexp.MustCompile(`\b(inc|llc|corp|ltd|co)\b`)},
	{"retail", regexp.MustCompile(`(store|shop|mart|market|depot)`)},
	{"financial", regexp.MustCompile(`(bank|insurance|financial|capital)`)},
	{"food_service", regexp.MustCompile(`(restaurant|cafe|coffee|pizza|grill|food)`)},
	{"service", regexp.MustCompile(`(service|consulting|solutions|agency)`)},
}

var commonAmounts = map[float64]bool{
	25: true, 50: true, 100: true, 250: true, 500: true,
	1000: true, 2500: true, 5000: true, 10000: true,
}

// FeatureExtractor converts one transaction into a flat weighted feature bag
// across five groups: description tokens and bigrams, amount shape, vendor,
// date shape, and entry type.
type FeatureExtractor struct {
	proc *textproc.Processor
}

func NewFeatureExtractor(proc *textproc.Processor) *FeatureExtractor {
	return &FeatureExtractor{proc: proc}
}

func (e *FeatureExtractor) Extract(tx *models.Transaction) []Feature {
	var features []Feature
	features = append(features, e.descriptionFeatures(tx.Description)...)
	features = append(features, e.amountFeatures(tx)...)
	features = append(features, e.vendorFeatures(tx.CustomerName)...)
	features = append(features, e.dateFeatures(tx)...)
	if len(tx.Entries) > 0 {
		features = append(features, Feature{
			Type:        "transaction_type",
			Value:       string(tx.Entries[0].Type),
			Weight:      1.0,
			GroupWeight: weightEntryType,
		})
	}
	return features
}

func (e *FeatureExtractor) descriptionFeatures(description string) []Feature {
	tokens := e.proc.ProcessText(description)
	features := make([]Feature, 0, 2*len(tokens))
	for _, tok := range tokens {
		features = append(features, Feature{
			Type:        "description_token",
			Value:       tok,
			Weight:      1.0,
			GroupWeight: weightDescription,
		})
	}
	// Adjacent pairs carry more signal than single tokens.
	for i := 0; i < len(tokens)-1; i++ {
		features = append(features, Feature{
			Type:        "description_bigram",
			Value:       tokens[i] + " " + tokens[i+1],
			Weight:      1.2,
			GroupWeight: weightDescription,
		})
	}
	return features
}

func (e *FeatureExtractor) amountFeatures(tx *models.Transaction) []Feature {
	entry := tx.DebitEntry()
	if entry == nil && len(tx.Entries) > 0 {
		entry = &tx.Entries[0]
	}
	if entry == nil {
		return nil
	}
	amount, err := entry.AmountValue()
	if err != nil {
		return nil
	}

	features := []Feature{{
		Type:        "amount_range",
		Value:       amountRangeBucket(amount),
		Weight:      1.5,
		GroupWeight: weightAmount,
	}}
	if amount == float64(int64(amount)) {
		features = append(features, Feature{
			Type:        "amount_shape",
			Value:       "whole_number",
			Weight:      1.0,
			GroupWeight: weightAmount,
		})
	}
	if commonAmounts[amount] || (amount > 0 && int64(amount)%100 == 0 && amount == float64(int64(amount))) {
		features = append(features, Feature{
			Type:        "amount_shape",
			Value:       "common_amount",
			Weight:      1.2,
			GroupWeight: weightAmount,
		})
	}
	return features
}

func amountRangeBucket(amount float64) string {
	switch {
	case amount <= 100:
		return "very_small"
	case amount <= 1000:
		return "small"
	case amount <= 10000:
		return "medium"
	case amount <= 100000:
		return "large"
	default:
		return "very_large"
	}
}

func (e *FeatureExtractor) vendorFeatures(vendor string) []Feature {
	normalized := strings.Join(e.proc.ProcessText(vendor), " ")
	if normalized == "" {
		return nil
	}
	features := []Feature{{
		Type:        "vendor",
		Value:       normalized,
		Weight:      1.5,
		GroupWeight: weightVendor,
	}}
	for _, vt := range vendorTypePatterns {
		if vt.re.MatchString(normalized) {
			features = append(features, Feature{
				Type:        "vendor_type",
				Value:       vt.tag,
				Weight:      1.2,
				GroupWeight: weightVendor,
			})
		}
	}
	return features
}

func (e *FeatureExtractor) dateFeatures(tx *models.Transaction) []Feature {
	date := tx.TransactionDate
	if date.IsZero() {
		return nil
	}
	lastDay := date.AddDate(0, 1, -date.Day()).Day()
	features := []Feature{
		{
			Type:        "day_of_week",
			Value:       strings.ToLower(date.Weekday().String()),
			Weight:      1.0,
			GroupWeight: weightDate,
		},
		{
			Type:        "day_of_month",
			Value:       strconv.Itoa(date.Day()),
			Weight:      1.0,
			GroupWeight: weightDate,
		},
	}
	if date.Day() == 1 || date.Day() == lastDay {
		features = append(features, Feature{
			Type:        "date_shape",
			Value:       "month_boundary",
			Weight:      1.2,
			GroupWeight: weightDate,
		})
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		features = append(features, Feature{
			Type:        "date_shape",
			Value:       "weekend",
			Weight:      1.0,
			GroupWeight: weightDate,
		})
	}
	return features
}

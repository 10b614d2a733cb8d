package textproc

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "this": true,
	"that": true, "it": true, "its": true,
}

// Processor handles tokenization, vocabulary construction and the simple
// categorical shape detection used by the mapping stages.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// ProcessText lowercases, strips everything outside [a-z0-9 ], splits on
// whitespace and drops stop words. Token order is preserved, duplicates
// included.
func (p *Processor) ProcessText(text string) []string {
	cleaned := nonAlnum.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Vocabulary is a fixed token set with a stable token->index assignment.
// Vectors built against the same Vocabulary are comparable; vectors built
// against different vocabularies are not.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

func (v *Vocabulary) Index(token string) (int, bool) {
	i, ok := v.index[token]
	return i, ok
}

// BuildVocabulary unions the processed tokens of all texts. Indexes are
// assigned in first-insertion order and never change for the life of the
// vocabulary.
func (p *Processor) BuildVocabulary(texts []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int)}
	for _, text := range texts {
		for _, tok := range p.ProcessText(text) {
			if _, ok := v.index[tok]; ok {
				continue
			}
			v.index[tok] = len(v.tokens)
			v.tokens = append(v.tokens, tok)
		}
	}
	return v
}

// CreateVector builds a term-frequency vector for text over the vocabulary.
// Tokens outside the vocabulary are ignored.
func (p *Processor) CreateVector(text string, vocab *Vocabulary) []float64 {
	vec := make([]float64, vocab.Size())
	for _, tok := range p.ProcessText(text) {
		if i, ok := vocab.Index(tok); ok {
			vec[i]++
		}
	}
	return vec
}

// Similarity computes a case-insensitive character-bigram Dice coefficient
// between two strings, in [0,1].
func (p *Processor) Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ba))
	for _, g := range ba {
		counts[g]++
	}
	overlap := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			overlap++
		}
	}
	return 2 * float64(overlap) / float64(len(ba)+len(bb))
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}

// KeyPhrases returns the five most frequent tokens, ties broken by first
// occurrence.
func (p *Processor) KeyPhrases(text string) []string {
	type entry struct {
		token string
		count int
		first int
	}
	tokens := p.ProcessText(text)
	seen := make(map[string]*entry)
	var order []*entry
	for i, tok := range tokens {
		if e, ok := seen[tok]; ok {
			e.count++
			continue
		}
		e := &entry{token: tok, count: 1, first: i}
		seen[tok] = e
		order = append(order, e)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})
	limit := 5
	if len(order) < limit {
		limit = len(order)
	}
	phrases := make([]string, 0, limit)
	for _, e := range order[:limit] {
		phrases = append(phrases, e.token)
	}
	return phrases
}

// AmountPattern tags an amount with its categorical shape. Checks run in
// priority order; the first hit wins.
func (p *Processor) AmountPattern(amount float64) string {
	switch {
	case amount == 0:
		return "zero"
	case math.Mod(amount, 1000) == 0:
		return "thousand_multiple"
	case math.Mod(amount, 100) == 0:
		return "hundred_multiple"
	case amount == math.Trunc(amount):
		return "whole_number"
	default:
		return "decimal"
	}
}

// DatePattern tags a date by its position within the month. Checks run in
// priority order; the first hit wins.
func (p *Processor) DatePattern(t time.Time) string {
	day := t.Day()
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	switch {
	case day == 1:
		return "month_start"
	case day == lastDay:
		return "month_end"
	case day <= 5:
		return "month_beginning"
	case day >= 25:
		return "month_ending"
	default:
		return "mid_month"
	}
}

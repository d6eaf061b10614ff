package history

import (
	"sort"
	"strings"
	"unicode"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Ranker scores a stored record against a new prompt. Records scoring zero are dropped.
type Ranker interface {
	Score(promptTokens map[string]struct{}, record domain.HistoryRecord) int
}

// KeywordRanker counts distinct case-insensitive tokens shared with the record's prompt.
type KeywordRanker struct{}

func (KeywordRanker) Score(promptTokens map[string]struct{}, record domain.HistoryRecord) int {
	score := 0
	for token := range Tokenize(record.Prompt) {
		if _, ok := promptTokens[token]; ok {
			score++
		}
	}
	return score
}

// Retriever selects the k most relevant records from a HistoryStore.
type Retriever struct {
	store  ports.HistoryStore
	ranker Ranker
}

// NewRetriever builds a retriever; a nil ranker means KeywordRanker.
func NewRetriever(store ports.HistoryStore, ranker Ranker) *Retriever {
	if ranker == nil {
		ranker = KeywordRanker{}
	}
	return &Retriever{store: store, ranker: ranker}
}

// Retrieve ranks by score, ties broken by recency (most recent first).
func (r *Retriever) Retrieve(prompt string, k int) ([]domain.HistoryRecord, error) {
	if k <= 0 {
		return nil, nil
	}
	records, err := r.store.Records(0)
	if err != nil {
		return nil, err
	}
	return Rank(prompt, records, k, r.ranker), nil
}

// Rank is the pure core of Retrieve. records must be oldest first.
func Rank(prompt string, records []domain.HistoryRecord, k int, ranker Ranker) []domain.HistoryRecord {
	tokens := Tokenize(prompt)
	if len(tokens) == 0 {
		return nil
	}
	type scored struct {
		record domain.HistoryRecord
		score  int
		order  int
	}
	var candidates []scored
	for i, rec := range records {
		if s := ranker.Score(tokens, rec); s > 0 {
			candidates = append(candidates, scored{record: rec, score: s, order: i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].record.Timestamp.Equal(candidates[j].record.Timestamp) {
			return candidates[i].record.Timestamp.After(candidates[j].record.Timestamp)
		}
		return candidates[i].order > candidates[j].order
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]domain.HistoryRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.record
	}
	return out
}

// Tokenize lowercases and splits on anything that is not a letter or digit.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

var _ ports.ContextRetriever = (*Retriever)(nil)

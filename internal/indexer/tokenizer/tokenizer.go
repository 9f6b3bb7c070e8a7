// Package tokenizer turns raw document and query text into the token
// streams consumed by the scoring models. Each model owns a Normalizer
// configured with its own stopword, reduction, synonym and n-gram policy,
// so the same text can be normalized differently for BM25, the language
// model and the vector space model.
package tokenizer

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// Reduction selects how a word is reduced to its index form.
type Reduction string

const (
	ReductionPorter   Reduction = "porter"
	ReductionSnowball Reduction = "snowball"
	ReductionLemma    Reduction = "lemma"
	ReductionNone     Reduction = "none"
)

// DefaultMaxSynonyms caps query expansion when ExpandSynonyms is set and
// no explicit limit is configured.
const DefaultMaxSynonyms = 3

// Mode distinguishes document text from query text. Only queries are
// expanded with synonyms.
type Mode int

const (
	ModeDocument Mode = iota
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "document"
}

// Config is the per-model text pipeline.
type Config struct {
	KeepStopwords  bool
	Reduction      Reduction
	ExpandSynonyms bool
	MaxSynonyms    int
	NGrams         bool
	Entities       bool
	SplitSentences bool
}

// Validate rejects unknown reductions and out of range synonym limits. An
// empty reduction means none.
func (c Config) Validate() error {
	switch c.Reduction {
	case ReductionPorter, ReductionSnowball, ReductionLemma, ReductionNone, "":
	default:
		return fmt.Errorf("%w: unknown reduction %q", apperrors.ErrInvalidInput, c.Reduction)
	}
	if c.MaxSynonyms < 0 || c.MaxSynonyms > DefaultMaxSynonyms {
		return fmt.Errorf("%w: max synonyms must be within [0,%d], got %d",
			apperrors.ErrInvalidInput, DefaultMaxSynonyms, c.MaxSynonyms)
	}
	return nil
}

// Group holds one query position: the reduced surface word first, followed
// by its reduced synonyms. Document text always yields single-token groups.
type Group []string

// Flatten returns the token stream the scorers operate on.
func Flatten(groups []Group) []string {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]string, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Normalizer applies a Config to text. It is immutable and safe for
// concurrent use.
type Normalizer struct {
	cfg       Config
	reduce    func(string) string
	stopwords map[string]struct{}
	thesaurus Thesaurus
}

// New builds a Normalizer. thesaurus may be nil when the config does not
// expand synonyms.
func New(cfg Config, thesaurus Thesaurus) (*Normalizer, error) {
	if cfg.Reduction == "" {
		cfg.Reduction = ReductionNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ExpandSynonyms && cfg.MaxSynonyms == 0 {
		cfg.MaxSynonyms = DefaultMaxSynonyms
	}
	if thesaurus == nil {
		thesaurus = noThesaurus{}
	}
	return &Normalizer{
		cfg:       cfg,
		reduce:    reducer(cfg.Reduction),
		stopwords: EnglishStopwords(),
		thesaurus: thesaurus,
	}, nil
}

// Config returns the pipeline the normalizer was built with.
func (n *Normalizer) Config() Config {
	return n.cfg
}

// Normalize runs the full pipeline over text. N-grams and then named
// entities are appended after the word groups. With SplitSentences set,
// n-grams never span a sentence boundary.
func (n *Normalizer) Normalize(text string, mode Mode) ([]Group, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyInput
	}
	units := []string{text}
	if n.cfg.SplitSentences {
		units = SplitSentences(text)
	}
	var groups, grams []Group
	for _, unit := range units {
		words, err := n.wordGroups(unit, mode)
		if err != nil {
			return nil, err
		}
		groups = append(groups, words...)
		if n.cfg.NGrams {
			grams = append(grams, ngramGroups(words)...)
		}
	}
	groups = append(groups, grams...)
	if n.cfg.Entities {
		groups = append(groups, entityGroups(text)...)
	}
	return groups, nil
}

// Tokens is Normalize followed by Flatten.
func (n *Normalizer) Tokens(text string, mode Mode) ([]string, error) {
	groups, err := n.Normalize(text, mode)
	if err != nil {
		return nil, err
	}
	return Flatten(groups), nil
}

// Sentences splits text into sentences and normalizes each one. N-grams
// stay within their sentence. Named entities of the whole text are
// attached to the first sentence. Sentences with no surviving tokens are
// dropped; at least one row is returned when text has any token.
func (n *Normalizer) Sentences(text string, mode Mode) ([][]Group, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyInput
	}
	var rows [][]Group
	for _, sentence := range SplitSentences(text) {
		groups, err := n.wordGroups(sentence, mode)
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			continue
		}
		if n.cfg.NGrams {
			groups = append(groups, ngramGroups(groups)...)
		}
		rows = append(rows, groups)
	}
	if n.cfg.Entities {
		if entities := entityGroups(text); len(entities) > 0 {
			if len(rows) == 0 {
				rows = append(rows, nil)
			}
			rows[0] = append(rows[0], entities...)
		}
	}
	return rows, nil
}

// wordGroups lowercases, segments, filters and reduces text, expanding
// synonyms for queries.
func (n *Normalizer) wordGroups(text string, mode Mode) ([]Group, error) {
	words, err := Words(strings.ToLower(text))
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(words))
	for _, word := range words {
		if !n.cfg.KeepStopwords {
			if _, stop := n.stopwords[word]; stop {
				continue
			}
		}
		reduced := n.reduce(word)
		if reduced == "" {
			continue
		}
		group := Group{reduced}
		if mode == ModeQuery && n.cfg.ExpandSynonyms {
			group = n.expand(word, group)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (n *Normalizer) expand(word string, group Group) Group {
	seen := map[string]struct{}{group[0]: {}}
	for _, syn := range n.thesaurus.Synonyms(word, n.cfg.MaxSynonyms) {
		reduced := n.reduce(strings.ToLower(syn))
		if reduced == "" {
			continue
		}
		if _, dup := seen[reduced]; dup {
			continue
		}
		seen[reduced] = struct{}{}
		group = append(group, reduced)
	}
	return group
}

package tokenizer

import (
	_ "embed"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Thesaurus supplies synonyms for a lowercased surface word. Implementations
// return at most limit entries, best first, never including word itself.
type Thesaurus interface {
	Synonyms(word string, limit int) []string
}

type noThesaurus struct{}

func (noThesaurus) Synonyms(string, int) []string { return nil }

//go:embed thesaurus.yaml
var defaultThesaurus []byte

type thesaurusFile struct {
	Groups [][]string `yaml:"groups"`
}

// StaticThesaurus is a fixed set of synonym groups. A word's synonyms are
// the other members of every group it belongs to, in file order.
type StaticThesaurus struct {
	entries map[string][]string
}

// DefaultThesaurus returns the thesaurus bundled with the binary.
func DefaultThesaurus() *StaticThesaurus {
	t, err := ParseThesaurus(defaultThesaurus)
	if err != nil {
		panic(fmt.Sprintf("tokenizer: bundled thesaurus: %v", err))
	}
	return t
}

// LoadThesaurus reads a YAML thesaurus of the form
//
//	groups:
//	  - [picture, image, photo]
func LoadThesaurus(r io.Reader) (*StaticThesaurus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading thesaurus: %w", err)
	}
	return ParseThesaurus(data)
}

// ParseThesaurus parses YAML thesaurus data.
func ParseThesaurus(data []byte) (*StaticThesaurus, error) {
	var f thesaurusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing thesaurus: %w", err)
	}
	t := &StaticThesaurus{entries: make(map[string][]string)}
	for _, group := range f.Groups {
		words := make([]string, 0, len(group))
		for _, w := range group {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" && !strings.ContainsAny(w, " _-") {
				words = append(words, w)
			}
		}
		for _, w := range words {
			for _, other := range words {
				if other != w && !slices.Contains(t.entries[w], other) {
					t.entries[w] = append(t.entries[w], other)
				}
			}
		}
	}
	return t, nil
}

func (t *StaticThesaurus) Synonyms(word string, limit int) []string {
	syns := t.entries[word]
	if limit >= 0 && len(syns) > limit {
		syns = syns[:limit]
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}

// Size reports how many words have at least one synonym.
func (t *StaticThesaurus) Size() int {
	return len(t.entries)
}

// ChainThesaurus merges several sources in order, dropping duplicates, and
// stops once limit synonyms are collected.
type ChainThesaurus []Thesaurus

func (c ChainThesaurus) Synonyms(word string, limit int) []string {
	var out []string
	for _, source := range c {
		if limit >= 0 && len(out) >= limit {
			break
		}
		for _, syn := range source.Synonyms(word, limit) {
			if syn == word || slices.Contains(out, syn) {
				continue
			}
			out = append(out, syn)
			if limit >= 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

package tokenizer

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/segment"
)

// Words splits text into alphanumeric words using Unicode word boundaries.
// Segments carrying inner punctuation ("don't", "3.5") are split further so
// only letters and digits survive. Case is preserved.
func Words(text string) ([]string, error) {
	seg := segment.NewWordSegmenterDirect([]byte(text))
	words := make([]string, 0, len(text)/5)
	for seg.Segment() {
		switch seg.Type() {
		case segment.Letter, segment.Number, segment.Kana, segment.Ideo:
		default:
			continue
		}
		word := seg.Text()
		if isAlnum(word) {
			words = append(words, word)
			continue
		}
		words = append(words, strings.FieldsFunc(word, notAlnum)...)
	}
	if err := seg.Err(); err != nil {
		return nil, fmt.Errorf("segmenting text: %w", err)
	}
	return words, nil
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isAlnum(s string) bool {
	for _, r := range s {
		if notAlnum(r) {
			return false
		}
	}
	return s != ""
}

var (
	stopwordsOnce sync.Once
	stopwordSet   map[string]struct{}
)

// EnglishStopwords returns the shared English stopword set. Callers must
// not modify it.
func EnglishStopwords() map[string]struct{} {
	stopwordsOnce.Do(func() {
		tm := analysis.NewTokenMap()
		if err := tm.LoadBytes(en.EnglishStopWords); err != nil {
			panic(fmt.Sprintf("tokenizer: loading english stopwords: %v", err))
		}
		stopwordSet = make(map[string]struct{}, len(tm))
		for word := range tm {
			stopwordSet[word] = struct{}{}
		}
	})
	return stopwordSet
}

// IsStopword reports whether the lowercased word is an English stopword.
func IsStopword(word string) bool {
	_, ok := EnglishStopwords()[word]
	return ok
}

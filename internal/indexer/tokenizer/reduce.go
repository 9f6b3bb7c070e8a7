package tokenizer

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	snowballeng "github.com/kljensen/snowball/english"
)

func reducer(r Reduction) func(string) string {
	switch r {
	case ReductionPorter:
		return porterstemmer.StemString
	case ReductionSnowball:
		return func(word string) string {
			return snowballeng.Stem(word, false)
		}
	case ReductionLemma:
		return Lemmatize
	default:
		return func(word string) string { return word }
	}
}

// irregularNouns maps plural forms that suffix rules cannot recover.
var irregularNouns = map[string]string{
	"children":  "child",
	"men":       "man",
	"women":     "woman",
	"people":    "person",
	"mice":      "mouse",
	"geese":     "goose",
	"feet":      "foot",
	"teeth":     "tooth",
	"oxen":      "ox",
	"leaves":    "leaf",
	"wolves":    "wolf",
	"knives":    "knife",
	"wives":     "wife",
	"lives":     "life",
	"halves":    "half",
	"shelves":   "shelf",
	"thieves":   "thief",
	"loaves":    "loaf",
	"data":      "datum",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"indices":   "index",
	"matrices":  "matrix",
	"vertices":  "vertex",
	"analyses":  "analysis",
	"theses":    "thesis",
	"crises":    "crisis",
	"movies":    "movie",
	"cookies":   "cookie",
	"calories":  "calorie",
	"zombies":   "zombie",
	"pies":      "pie",
	"ties":      "tie",
	"lies":      "lie",
}

// invariantNouns end in "s" but are not plurals.
var invariantNouns = map[string]struct{}{
	"news": {}, "series": {}, "species": {}, "means": {}, "physics": {},
	"mathematics": {}, "economics": {}, "politics": {}, "lens": {},
	"gas": {}, "bias": {}, "atlas": {}, "canvas": {}, "chaos": {},
	"always": {}, "perhaps": {}, "thus": {}, "this": {}, "his": {},
	"was": {}, "has": {}, "does": {}, "yes": {}, "its": {}, "us": {},
}

// Lemmatize reduces an English noun to its dictionary form. It mirrors the
// WordNet noun detachment rules, guarded by irregular and invariant lists
// since no dictionary lookup is available.
func Lemmatize(word string) string {
	if lemma, ok := irregularNouns[word]; ok {
		return lemma
	}
	if _, ok := invariantNouns[word]; ok {
		return word
	}
	if len(word) < 4 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zzes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "men") && len(word) > 5:
		return word[:len(word)-3] + "man"
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

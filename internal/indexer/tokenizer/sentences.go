package tokenizer

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "inc": {}, "ltd": {}, "co": {}, "corp": {},
	"no": {}, "fig": {}, "vol": {}, "approx": {}, "dept": {}, "est": {},
	"e.g": {}, "i.e": {}, "jan": {}, "feb": {}, "mar": {}, "apr": {},
	"jun": {}, "jul": {}, "aug": {}, "sep": {}, "sept": {}, "oct": {},
	"nov": {}, "dec": {},
}

// SplitSentences breaks text at terminal punctuation followed by
// whitespace, and at blank lines. A period closing a known abbreviation or
// a single-letter initial does not end a sentence. Returned sentences are
// trimmed and never empty.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			emit(i)
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && strings.ContainsRune(`.!?"')]`, runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		if r == '.' && endsWithAbbreviation(runes[start:i]) {
			i = end - 1
			continue
		}
		emit(end)
		i = end - 1
	}
	emit(len(runes))
	return sentences
}

func endsWithAbbreviation(prefix []rune) bool {
	j := len(prefix)
	for j > 0 && !unicode.IsSpace(prefix[j-1]) {
		j--
	}
	word := strings.ToLower(strings.TrimLeft(string(prefix[j:]), `"'([`))
	if word == "" {
		return false
	}
	if _, ok := abbreviations[word]; ok {
		return true
	}
	r := []rune(word)
	return len(r) == 1 && unicode.IsLetter(r[0])
}

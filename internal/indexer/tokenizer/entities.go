package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractEntities finds named entities in text using capitalization: a
// maximal run of capitalized words is one entity and keeps its original
// casing. A lone capitalized word opening a sentence is ignored unless it
// is an acronym, since sentence-initial capitals carry no signal.
func ExtractEntities(text string) []string {
	var (
		entities []string
		run      []string
		runStart bool
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		if len(run) > 1 || !runStart || isAcronym(run[0]) {
			entities = append(entities, strings.Join(run, " "))
		}
		run = run[:0]
	}

	sentenceStart := true
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, notAlnum)
		endsSentence := endsWithTerminal(field)
		last, _ := utf8.DecodeLastRuneInString(field)
		breaksRun := notAlnum(last)

		if isCapitalized(word) && !IsStopword(strings.ToLower(word)) {
			if len(run) == 0 {
				runStart = sentenceStart
			}
			run = append(run, word)
		} else {
			flush()
		}
		if breaksRun || endsSentence {
			flush()
		}
		sentenceStart = endsSentence
	}
	flush()
	return entities
}

func entityGroups(text string) []Group {
	entities := ExtractEntities(text)
	groups := make([]Group, 0, len(entities))
	for _, e := range entities {
		groups = append(groups, Group{e})
	}
	return groups
}

func isCapitalized(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 || !unicode.IsUpper(r) {
		return false
	}
	return isAlnum(word)
}

func isAcronym(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	for _, r := range word {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func endsWithTerminal(field string) bool {
	trimmed := strings.TrimRight(field, `"')]`)
	return strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?")
}

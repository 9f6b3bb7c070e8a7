package tokenizer

import "strings"

// NGrams returns the bigrams and trigrams of tokens, each joined with a
// single space, bigrams first.
func NGrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, 2*len(tokens)-3)
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// ngramGroups builds n-grams over the leading token of each group, so
// synonyms never produce phrase variants.
func ngramGroups(groups []Group) []Group {
	heads := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) > 0 {
			heads = append(heads, g[0])
		}
	}
	grams := NGrams(heads)
	out := make([]Group, 0, len(grams))
	for _, gram := range grams {
		out = append(out, Group{gram})
	}
	return out
}

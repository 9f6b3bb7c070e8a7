package snippet

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		terms  []string
		window int
		want   string
	}{
		{
			name:   "match in middle",
			text:   "one two three four five six seven eight",
			terms:  []string{"five"},
			window: 4,
			want:   "three four five six...",
		},
		{
			name:   "match at start",
			text:   "Cat sat on the mat",
			terms:  []string{"cat"},
			window: 4,
			want:   "Cat sat...",
		},
		{
			name:   "window covers the end",
			text:   "the quick brown fox",
			terms:  []string{"fox"},
			window: 30,
			want:   "the quick brown fox",
		},
		{
			name:  "first term occurrence wins",
			text:  "a b dog c d cat e",
			terms: []string{"cat", "dog"},
			want:  "a b dog c d cat e",
		},
		{
			name:  "no match",
			text:  "nothing relevant here",
			terms: []string{"absent"},
			want:  NoMatch,
		},
		{
			name:  "stemmed term is literal",
			text:  "running cats",
			terms: []string{"cat"},
			want:  NoMatch,
		},
		{
			name:  "no terms",
			text:  "text",
			terms: nil,
			want:  NoMatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text, tt.terms, tt.window); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractIdempotent(t *testing.T) {
	text := strings.Repeat("filler ", 40) + "target " + strings.Repeat("tail ", 40)
	first := Extract(text, []string{"TARGET"}, 10)
	second := Extract(text, []string{"TARGET"}, 10)
	if first != second {
		t.Fatalf("Extract not deterministic: %q vs %q", first, second)
	}
	if !strings.Contains(first, "target") || !strings.HasSuffix(first, "...") {
		t.Errorf("unexpected snippet %q", first)
	}
	if n := len(strings.Fields(strings.TrimSuffix(first, "..."))); n != 10 {
		t.Errorf("snippet has %d words, want 10", n)
	}
}

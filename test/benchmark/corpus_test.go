// Package benchmark contains Go benchmarks for text normalization, term
// statistics, index builds and tri-model search over a synthetic corpus.
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
)

var vocabulary = []string{
	"ocean", "sunset", "mountain", "river", "valley", "city", "skyline", "night",
	"portrait", "scientist", "temple", "ruins", "bridge", "cathedral", "desert",
	"camel", "storm", "ship", "painting", "forest", "snow", "volcano", "harbour",
	"lighthouse", "market", "festival", "train", "station", "garden", "castle",
	"Paris", "London", "Everest", "Nile", "Amazon", "Sahara", "NASA", "UNESCO",
}

// syntheticCorpus builds n documents of sentences drawn from vocabulary.
// The seed is fixed so every run indexes the same text.
func syntheticCorpus(b *testing.B, n int) *corpus.Store {
	b.Helper()
	rng := rand.New(rand.NewSource(42))
	docs := make([]corpus.Document, n)
	for i := range docs {
		var sb strings.Builder
		sentences := 2 + rng.Intn(4)
		for s := 0; s < sentences; s++ {
			words := 6 + rng.Intn(10)
			for w := 0; w < words; w++ {
				if w > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(vocabulary[rng.Intn(len(vocabulary))])
			}
			sb.WriteString(". ")
		}
		docs[i] = corpus.Document{
			DocID:        fmt.Sprintf("doc-%d", i),
			FileName:     fmt.Sprintf("doc-%d.txt", i),
			OriginalText: sb.String(),
		}
	}
	store, err := corpus.NewStore(docs)
	if err != nil {
		b.Fatal(err)
	}
	return store
}

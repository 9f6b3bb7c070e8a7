package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
)

// BenchmarkStatisticsBuild measures term statistics construction for
// corpora of increasing size.
func BenchmarkStatisticsBuild(b *testing.B) {
	n := newNormalizer(b, pipelines["bm25"])
	for _, size := range []int{100, 1000, 5000} {
		store := syntheticCorpus(b, size)
		docs := make([][]string, store.Len())
		for i := range docs {
			tokens, err := n.Tokens(store.At(i).OriginalText, tokenizer.ModeDocument)
			if err != nil {
				b.Fatal(err)
			}
			docs[i] = tokens
		}
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := index.Build(docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEngineBuild measures a full three-model build including the
// truncated SVD.
func BenchmarkEngineBuild(b *testing.B) {
	for _, size := range []int{100, 500} {
		store := syntheticCorpus(b, size)
		opts := executor.DefaultOptions()
		opts.VSM.Components = 20
		opts.Tracing = false
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				engine, err := executor.New(opts)
				if err != nil {
					b.Fatal(err)
				}
				if err := engine.Build(context.Background(), store); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

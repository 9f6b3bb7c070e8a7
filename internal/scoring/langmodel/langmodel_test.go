package langmodel

import (
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

func build(t *testing.T, texts ...string) *Index {
	t.Helper()
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		docs[i] = corpus.Document{DocID: "doc" + string(rune('1'+i)), OriginalText: text}
	}
	store, err := corpus.NewStore(docs)
	if err != nil {
		t.Fatal(err)
	}
	n, err := tokenizer.New(tokenizer.Config{KeepStopwords: true, Reduction: tokenizer.ReductionLemma}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := Build(store, n, DefaultParams())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestCollectionProbabilitiesSumToOne(t *testing.T) {
	ix := build(t, "the cat sat on the mat", "the dog ran", "cats and dogs")
	sum := 0.0
	for _, term := range ix.Statistics().Vocabulary() {
		sum += ix.CollectionProbability(term)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("sum of P(t|C) = %v", sum)
	}
}

func TestDocumentModelIsDistribution(t *testing.T) {
	ix := build(t, "the cat sat on the mat", "the dog ran", "cats and dogs")
	for pos := 0; pos < 3; pos++ {
		sum := 0.0
		for _, term := range ix.Statistics().Vocabulary() {
			sum += ix.TermProbability(term, pos)
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("doc %d: sum of P(t|d) = %v", pos, sum)
		}
	}
}

func TestRanksAllDocuments(t *testing.T) {
	ix := build(t, "the cat sat", "the dog ran", "a bird flew")
	res, err := ix.Search("cat")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 3 {
		t.Fatalf("ranked %d documents, want 3", len(res.Docs))
	}
	if res.Docs[0].DocID != "doc1" {
		t.Errorf("top document = %s, want doc1", res.Docs[0].DocID)
	}
	for _, d := range res.Docs {
		if d.Score >= 0 {
			t.Errorf("%s log likelihood %v should be negative", d.DocID, d.Score)
		}
	}
	if res.Docs[1].DocID != "doc2" || res.Docs[2].DocID != "doc3" {
		t.Errorf("ties must keep corpus order, got %s, %s", res.Docs[1].DocID, res.Docs[2].DocID)
	}
}

func TestUnseenTermUsesFloor(t *testing.T) {
	ix := build(t, "the cat sat", "the dog ran")
	for pos := 0; pos < 2; pos++ {
		s := ix.Score([]string{"unicorn"}, pos)
		if math.IsInf(s, 0) || math.IsNaN(s) {
			t.Fatalf("score for unseen term is not finite: %v", s)
		}
		docLen := float64(ix.Statistics().DocLength(pos))
		want := math.Log(DefaultMu * DefaultEpsilon / (docLen + DefaultMu))
		if math.Abs(s-want) > 1e-9 {
			t.Errorf("doc %d score = %v, want %v", pos, s, want)
		}
	}
}

func TestDiagnose(t *testing.T) {
	ix := build(t, "cat cat dog dog")
	d := ix.Diagnose([]string{"cat", "unicorn"})
	if d.Coverage != 0.5 || d.Tokens != 2 {
		t.Errorf("coverage = %v tokens = %d", d.Coverage, d.Tokens)
	}
	want := (1 - math.Log2(DefaultEpsilon)) / 2
	if math.Abs(d.Entropy-want) > 1e-9 {
		t.Errorf("entropy = %v, want %v", d.Entropy, want)
	}
	if got := ix.Diagnose(nil); got != (Diagnostics{}) {
		t.Errorf("empty diagnostics = %+v", got)
	}
}

func TestEmptyCorpusAndNotBuilt(t *testing.T) {
	empty, _ := corpus.NewStore(nil)
	n, _ := tokenizer.New(tokenizer.Config{}, nil)
	if _, err := Build(empty, n, DefaultParams()); !errors.Is(err, apperrors.ErrNoDocuments) {
		t.Errorf("Build error = %v, want ErrNoDocuments", err)
	}
	s := NewScorer(DefaultParams())
	if _, err := s.Search("cat"); !errors.Is(err, apperrors.ErrIndexNotBuilt) {
		t.Errorf("Search error = %v, want ErrIndexNotBuilt", err)
	}
}

func TestParamsValidate(t *testing.T) {
	for _, p := range []Params{{Mu: 0, Epsilon: 1e-10}, {Mu: 10, Epsilon: 0}, {Mu: 10, Epsilon: 1}} {
		if err := p.Validate(); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Validate(%+v) = %v", p, err)
		}
	}
}

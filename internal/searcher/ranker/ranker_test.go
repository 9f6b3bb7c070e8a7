package ranker

import (
	"reflect"
	"testing"
)

func ids(docs []ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func TestSortTiesInCorpusOrder(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: "c", Score: 1.0, Position: 2},
		{DocID: "a", Score: 2.0, Position: 0},
		{DocID: "d", Score: 1.0, Position: 3},
		{DocID: "b", Score: 1.0, Position: 1},
	}
	Sort(docs)
	if got := ids(docs); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("order = %v", got)
	}
}

func TestKeepPositive(t *testing.T) {
	docs := []ScoredDoc{{DocID: "a", Score: 0.5}, {DocID: "b"}, {DocID: "c", Score: -1}}
	if got := ids(KeepPositive(docs)); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("KeepPositive = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	docs := []ScoredDoc{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	if got := Truncate(docs, 2); len(got) != 2 {
		t.Errorf("Truncate(2) len = %d", len(got))
	}
	if got := Truncate(docs, 0); len(got) != 3 {
		t.Errorf("Truncate(0) len = %d", len(got))
	}
}

package tracing

import (
	"context"
	"testing"
)

func TestChildSpansShareTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	_, bm := StartChildSpan(ctx, "score.bm25")
	_, lm := StartChildSpan(ctx, "score.lm")
	bm.SetAttr("hits", 3)
	bm.End()
	lm.End()
	root.End()

	if SpanFromContext(ctx) != root {
		t.Fatal("root span not in context")
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d", len(root.Children))
	}
	got := root.Child("score.bm25")
	if got == nil || got.TraceID != "trace-1" || got.Attrs["hits"] != 3 {
		t.Errorf("child = %+v", got)
	}
	if root.Child("score.vsm") != nil {
		t.Error("unexpected child")
	}
	root.Log()
}

func TestChildWithoutParent(t *testing.T) {
	_, s := StartChildSpan(context.Background(), "orphan")
	if s.TraceID != "" {
		t.Errorf("trace id = %q", s.TraceID)
	}
}

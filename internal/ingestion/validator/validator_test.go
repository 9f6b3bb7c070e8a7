package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion"
)

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   ingestion.IngestRequest
		field string
	}{
		{"valid", ingestion.IngestRequest{DocID: "doc-1", Text: "hello"}, ""},
		{"missing id", ingestion.IngestRequest{Text: "hello"}, "doc_id"},
		{"id with space", ingestion.IngestRequest{DocID: "doc 1", Text: "hello"}, "doc_id"},
		{"padded id", ingestion.IngestRequest{DocID: " doc1", Text: "hello"}, "doc_id"},
		{"long id", ingestion.IngestRequest{DocID: strings.Repeat("x", 256), Text: "hello"}, "doc_id"},
		{"blank text", ingestion.IngestRequest{DocID: "doc-1", Text: "  \n"}, "text"},
		{"long file name", ingestion.IngestRequest{DocID: "doc-1", FileName: strings.Repeat("f", 1025), Text: "hello"}, "file_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&tt.req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", verr.Fields, tt.field)
			}
		})
	}
}

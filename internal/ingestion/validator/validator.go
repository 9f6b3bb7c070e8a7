// Package validator checks ingestion requests and reports per-field errors.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion"
)

const (
	maxDocIDLength    = 255
	maxFileNameLength = 1024
	maxTextLength     = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest enforces the id, file name and text constraints of a
// corpus document.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(req.DocID)
	switch {
	case id == "":
		errs["doc_id"] = "doc_id is required"
	case id != req.DocID || strings.ContainsAny(id, " \t\r\n"):
		errs["doc_id"] = "doc_id must not contain whitespace"
	case len(id) > maxDocIDLength:
		errs["doc_id"] = fmt.Sprintf("doc_id must be at most %d characters", maxDocIDLength)
	}
	if len(req.FileName) > maxFileNameLength {
		errs["file_name"] = fmt.Sprintf("file_name must be at most %d characters", maxFileNameLength)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		errs["text"] = "text is required and must not be empty"
	} else if len(req.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

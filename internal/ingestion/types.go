// Package ingestion defines the request and response types of the document
// ingestion endpoint, which adds documents to the PostgreSQL corpus and
// announces the change so searchers rebuild.
package ingestion

import "github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"

// IngestRequest is the JSON body accepted by POST /api/v1/documents.
type IngestRequest struct {
	DocID      string   `json:"doc_id"`
	FileName   string   `json:"file_name"`
	Text       string   `json:"text"`
	Author     string   `json:"author,omitempty"`
	Caption    string   `json:"caption,omitempty"`
	AltText    string   `json:"alt_text,omitempty"`
	PageURL    string   `json:"page_url,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Document converts the request into a corpus document.
func (r IngestRequest) Document() corpus.Document {
	fileName := r.FileName
	if fileName == "" {
		fileName = r.DocID
	}
	return corpus.Document{
		DocID:        r.DocID,
		FileName:     fileName,
		OriginalText: r.Text,
		Author:       r.Author,
		Caption:      r.Caption,
		AltText:      r.AltText,
		PageURL:      r.PageURL,
		Categories:   r.Categories,
	}
}

// Status values reported in IngestResponse.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
)

// IngestResponse is returned after a document is stored. Published is false
// when the corpus update could not be announced; searchers then pick the
// document up on their next rebuild.
type IngestResponse struct {
	DocID     string `json:"doc_id"`
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Published bool   `json:"published"`
}

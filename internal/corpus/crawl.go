package corpus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// CrawledImage is one image record in the crawler's image_data.json dump.
type CrawledImage struct {
	PageURL         string   `json:"page_url"`
	PageTitle       string   `json:"page_title"`
	Categories      []string `json:"categories"`
	ImageURL        string   `json:"image_url"`
	AltText         string   `json:"alt_text"`
	TitleText       string   `json:"title_text"`
	Caption         string   `json:"caption"`
	BodyText        string   `json:"body_text"`
	SurroundingText string   `json:"surrounding_text"`
}

type crawlDump struct {
	ImageData []CrawledImage `json:"image_data"`
}

// LoadCrawl reads a crawler dump and turns every image into a document whose
// text combines the page title, categories, alt text, image title,
// surrounding text and caption. The image URL is the document id; repeated
// images keep their first occurrence.
func LoadCrawl(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crawl dump %s: %w", path, err)
	}
	var dump crawlDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parsing crawl dump %s: %w", path, err)
	}
	docs := DocumentsFromCrawl(dump.ImageData)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: crawl dump %s has no usable images", apperrors.ErrNoDocuments, path)
	}
	slog.Default().With("component", "corpus-loader", "source", "crawl").Info("documents loaded",
		"path", path,
		"images", len(dump.ImageData),
		"count", len(docs),
	)
	return NewStore(docs)
}

// DocumentsFromCrawl converts crawler records to documents, dropping images
// without a URL or any text and keeping the first of repeated URLs.
func DocumentsFromCrawl(images []CrawledImage) []Document {
	docs := make([]Document, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if img.ImageURL == "" {
			continue
		}
		if _, dup := seen[img.ImageURL]; dup {
			continue
		}
		text := combinedText(img)
		if text == "" {
			continue
		}
		seen[img.ImageURL] = struct{}{}
		docs = append(docs, Document{
			DocID:        img.ImageURL,
			FileName:     img.PageTitle,
			Path:         img.ImageURL,
			OriginalText: text,
			Extension:    ".html",
			Categories:   img.Categories,
			Caption:      img.Caption,
			AltText:      img.AltText,
			PageURL:      img.PageURL,
		})
	}
	return docs
}

func combinedText(img CrawledImage) string {
	parts := []string{
		img.PageTitle,
		strings.Join(img.Categories, " "),
		img.AltText,
		img.TitleText,
		img.SurroundingText,
		img.Caption,
	}
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Package parser reads query batches: "id<TAB>text" lines or TREC topic
// files.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// Query is one query of a batch.
type Query struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Format selects how a batch is parsed.
type Format int

const (
	FormatAuto Format = iota
	FormatLines
	FormatTopics
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "lines", "tsv":
		return FormatLines, nil
	case "topics", "trec":
		return FormatTopics, nil
	}
	return FormatAuto, fmt.Errorf("%w: unknown query format %q", apperrors.ErrInvalidInput, s)
}

// ParseFile reads a batch from path.
func ParseFile(path string, format Format) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads a batch. FormatAuto picks topics when the input contains a
// <top> tag. Queries without text are dropped.
func Parse(r io.Reader, format Format) ([]Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	text := string(data)
	if format == FormatAuto {
		format = FormatLines
		if strings.Contains(strings.ToLower(text), "<top>") {
			format = FormatTopics
		}
	}
	var queries []Query
	if format == FormatTopics {
		queries = parseTopics(text)
	} else {
		queries, err = parseLines(text)
		if err != nil {
			return nil, err
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries found", apperrors.ErrEmptyInput)
	}
	return queries, nil
}

// parseLines reads "id<TAB>text" lines. Lines without a tab get the next
// sequence number as id. Blank lines and lines starting with # are
// skipped.
func parseLines(text string) ([]Query, error) {
	var out []Query
	seen := make(map[string]int)
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q := Query{ID: strconv.Itoa(len(out) + 1), Text: line}
		if id, rest, ok := strings.Cut(line, "\t"); ok {
			q = Query{ID: strings.TrimSpace(id), Text: strings.TrimSpace(rest)}
		}
		if q.Text == "" {
			continue
		}
		if prev, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: query id %q on line %d already used on line %d",
				apperrors.ErrInvalidInput, q.ID, lineNo, prev)
		}
		seen[q.ID] = lineNo
		out = append(out, q)
	}
	return out, sc.Err()
}

var (
	topicRe = regexp.MustCompile(`(?is)<top>(.*?)</top>`)
	numRe   = regexp.MustCompile(`(?is)<num>\s*(?:number:)?\s*([^\s<]+)`)
	titleRe = regexp.MustCompile(`(?is)<title>\s*(?:topic:)?(.*?)(?:<[a-z/]|$)`)
)

// parseTopics extracts num and title from every <top> block. The title is
// the query text.
func parseTopics(text string) []Query {
	var out []Query
	for _, m := range topicRe.FindAllStringSubmatch(text, -1) {
		block := m[1]
		num := numRe.FindStringSubmatch(block)
		title := titleRe.FindStringSubmatch(block)
		if num == nil || title == nil {
			continue
		}
		q := Query{ID: num[1], Text: strings.Join(strings.Fields(title[1]), " ")}
		if q.Text != "" {
			out = append(out, q)
		}
	}
	return out
}

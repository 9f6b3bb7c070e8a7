package corpus

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// LoadFolder walks dir recursively and loads every .txt file as a document.
// The file name is the document id; when two files share a name the path
// relative to dir is used instead. Blank files are skipped.
func LoadFolder(dir string) (*Store, error) {
	logger := slog.Default().With("component", "corpus-loader", "source", "folder")

	var docs []Document
	seen := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		text := strings.ToValidUTF8(string(data), "")
		if strings.TrimSpace(text) == "" {
			logger.Warn("skipping blank document", "path", path)
			return nil
		}
		id := d.Name()
		if _, dup := seen[id]; dup {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			id = filepath.ToSlash(rel)
		}
		seen[id] = struct{}{}
		docs = append(docs, Document{
			DocID:        id,
			FileName:     d.Name(),
			Path:         path,
			OriginalText: text,
			Extension:    filepath.Ext(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading folder %s: %w", dir, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no .txt files found in %s", apperrors.ErrNoDocuments, dir)
	}
	logger.Info("documents loaded", "dir", dir, "count", len(docs))
	return NewStore(docs)
}

package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
)

// PostgresLoader reads and writes the corpus in the documents table created
// by postgres.Migrate. Rows are loaded in load_order so corpus order
// survives a round trip.
type PostgresLoader struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgresLoader creates a loader backed by db.
func NewPostgresLoader(db *postgres.Client) *PostgresLoader {
	return &PostgresLoader{
		db:     db,
		logger: slog.Default().With("component", "corpus-loader", "source", "postgres"),
	}
}

// Load reads every document in corpus order.
func (l *PostgresLoader) Load(ctx context.Context) (*Store, error) {
	rows, err := l.db.DB.QueryContext(ctx, `
		SELECT doc_id, file_name, path, original_text, extension,
		       author, bibliography, categories, caption, alt_text, page_url
		FROM documents
		ORDER BY load_order`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d                                      Document
			author, bibliography, caption, altText sql.NullString
			pageURL                                sql.NullString
		)
		if err := rows.Scan(&d.DocID, &d.FileName, &d.Path, &d.OriginalText, &d.Extension,
			&author, &bibliography, pq.Array(&d.Categories), &caption, &altText, &pageURL); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		d.Author = author.String
		d.Bibliography = bibliography.String
		d.Caption = caption.String
		d.AltText = altText.String
		d.PageURL = pageURL.String
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents table is empty", apperrors.ErrNoDocuments)
	}
	l.logger.Info("documents loaded", "count", len(docs))
	return NewStore(docs)
}

// Save replaces the stored corpus with store in a single transaction.
func (l *PostgresLoader) Save(ctx context.Context, store *Store) error {
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return fmt.Errorf("clearing documents: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (doc_id, load_order, file_name, path, original_text, extension,
			                       author, bibliography, categories, caption, alt_text, page_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i := 0; i < store.Len(); i++ {
			d := store.At(i)
			if _, err := stmt.ExecContext(ctx, d.DocID, i, d.FileName, d.Path, d.OriginalText,
				d.Extension, d.Author, d.Bibliography, pq.Array(d.Categories), d.Caption,
				d.AltText, d.PageURL); err != nil {
				return fmt.Errorf("inserting document %s: %w", d.DocID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.logger.Info("documents saved", "count", store.Len())
	return nil
}

// Upsert inserts doc at the end of corpus order, or replaces the stored
// document with the same id in place. It reports whether a row was created
// and the corpus size afterwards.
func (l *PostgresLoader) Upsert(ctx context.Context, doc Document) (created bool, total int, err error) {
	err = l.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO documents (doc_id, load_order, file_name, path, original_text, extension,
			                       author, bibliography, categories, caption, alt_text, page_url)
			VALUES ($1, (SELECT COALESCE(MAX(load_order), -1) + 1 FROM documents),
			        $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (doc_id) DO UPDATE SET
				file_name = EXCLUDED.file_name,
				path = EXCLUDED.path,
				original_text = EXCLUDED.original_text,
				extension = EXCLUDED.extension,
				author = EXCLUDED.author,
				bibliography = EXCLUDED.bibliography,
				categories = EXCLUDED.categories,
				caption = EXCLUDED.caption,
				alt_text = EXCLUDED.alt_text,
				page_url = EXCLUDED.page_url
			RETURNING (xmax = 0)`,
			doc.DocID, doc.FileName, doc.Path, doc.OriginalText, doc.Extension, doc.Author,
			doc.Bibliography, pq.Array(doc.Categories), doc.Caption, doc.AltText, doc.PageURL,
		).Scan(&created); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.DocID, err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
			return fmt.Errorf("counting documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	l.logger.Info("document stored", "doc_id", doc.DocID, "created", created, "total", total)
	return created, total, nil
}

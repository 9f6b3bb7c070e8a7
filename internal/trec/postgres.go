package trec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

// PostgresSink stores run lines in the trec_runs table. Every sink gets
// its own run id so separate sessions can be told apart.
type PostgresSink struct {
	db     *postgres.Client
	runID  string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewPostgresSink(db *postgres.Client, retry resilience.RetryConfig) *PostgresSink {
	return &PostgresSink{
		db:     db,
		runID:  uuid.NewString(),
		retry:  retry,
		logger: slog.Default().With("component", "trec-postgres"),
	}
}

func (s *PostgresSink) RunID() string {
	return s.runID
}

func (s *PostgresSink) Write(ctx context.Context, model ranker.Model, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	err := resilience.Retry(ctx, "trec-insert", s.retry, func() error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO trec_runs (run_id, model, query_id, doc_id, rank, score, run_tag)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
			if err != nil {
				return fmt.Errorf("preparing trec insert: %w", err)
			}
			defer stmt.Close()
			for _, e := range entries {
				if _, err := stmt.ExecContext(ctx, s.runID, string(model), e.QueryID, e.DocID, e.Rank, e.Score, e.RunTag); err != nil {
					return fmt.Errorf("inserting trec line: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.logger.Debug("trec lines stored", "run_id", s.runID, "model", model, "lines", len(entries))
	return nil
}

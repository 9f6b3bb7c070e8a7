package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
)

// Source loads the corpus named by the configuration. db is only needed
// for the postgres source.
func Source(cfg config.CorpusConfig, db *postgres.Client) func(ctx context.Context) (*Store, error) {
	return func(ctx context.Context) (*Store, error) {
		switch cfg.Source {
		case "folder":
			return LoadFolder(cfg.Path)
		case "crawl":
			return LoadCrawl(cfg.Path)
		case "postgres":
			if db == nil {
				return nil, fmt.Errorf("%w: corpus source postgres without a database", apperrors.ErrInvalidInput)
			}
			return NewPostgresLoader(db).Load(ctx)
		default:
			return nil, fmt.Errorf("%w: unknown corpus source %q", apperrors.ErrInvalidInput, cfg.Source)
		}
	}
}

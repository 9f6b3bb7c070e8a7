package executor

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/bm25"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/langmodel"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/vsm"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/trec"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
)

// Options are the model parameters and text pipelines of an Engine.
type Options struct {
	BM25         bm25.Params
	BM25Pipeline tokenizer.Config
	LM           langmodel.Params
	LMPipeline   tokenizer.Config
	VSM          vsm.Config
	VSMPipeline  tokenizer.Config

	// SemanticNeighbours adds corpus co-occurrence synonyms to the static
	// thesaurus on every build.
	SemanticNeighbours bool
	SnippetWindow      int
	RunTag             string
	Tracing            bool
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the models and search sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	m := cfg.Models
	return Options{
		BM25:         bm25.Params{K1: m.BM25.K1, B: m.BM25.B},
		BM25Pipeline: pipeline(m.BM25.Pipeline),
		LM:           langmodel.Params{Mu: m.LM.Mu, Epsilon: m.LM.Epsilon},
		LMPipeline:   pipeline(m.LM.Pipeline),
		VSM: vsm.Config{
			Components:      m.VSM.Components,
			Granularity:     vsm.Granularity(m.VSM.Granularity),
			ShortQueryBoost: m.VSM.ShortQueryBoost,
			ShortQueryTerms: m.VSM.ShortQueryTerms,
		},
		VSMPipeline:        pipeline(m.VSM.Pipeline),
		SemanticNeighbours: m.SemanticNeighbours,
		SnippetWindow:      cfg.Search.SnippetWindow,
		RunTag:             cfg.Search.RunTag,
		Tracing:            cfg.Tracing.Enabled,
	}
}

func pipeline(p config.PipelineConfig) tokenizer.Config {
	return tokenizer.Config{
		KeepStopwords:  p.KeepStopwords,
		Reduction:      tokenizer.Reduction(p.Reduction),
		ExpandSynonyms: p.ExpandSynonyms,
		MaxSynonyms:    p.MaxSynonyms,
		NGrams:         p.NGrams,
		Entities:       p.Entities,
		SplitSentences: p.SplitSentences,
	}
}

func (o Options) Validate() error {
	if err := o.BM25.Validate(); err != nil {
		return err
	}
	if err := o.LM.Validate(); err != nil {
		return err
	}
	if err := o.VSM.Validate(); err != nil {
		return err
	}
	for name, p := range map[string]tokenizer.Config{"bm25": o.BM25Pipeline, "lm": o.LMPipeline, "vsm": o.VSMPipeline} {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s pipeline: %w", name, err)
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.SnippetWindow <= 0 {
		o.SnippetWindow = snippet.DefaultWindow
	}
	if o.RunTag == "" {
		o.RunTag = trec.DefaultRunTag
	}
	return o
}

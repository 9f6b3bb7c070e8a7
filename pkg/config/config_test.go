package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Models.BM25.K1 != 1.5 || cfg.Models.BM25.B != 0.75 {
		t.Errorf("unexpected bm25 defaults: %+v", cfg.Models.BM25)
	}
	if cfg.Models.LM.Mu != 2000 {
		t.Errorf("expected mu 2000, got %v", cfg.Models.LM.Mu)
	}
	if !cfg.Models.LM.Pipeline.KeepStopwords {
		t.Error("language model should keep stopwords by default")
	}
	if cfg.Models.BM25.Pipeline.KeepStopwords {
		t.Error("bm25 should drop stopwords by default")
	}
	if cfg.Search.RunTag != "STANDARD" {
		t.Errorf("expected run tag STANDARD, got %q", cfg.Search.RunTag)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
corpus:
  source: crawl
  path: /data/image_data.json
models:
  vsm:
    components: 12
    granularity: sentence
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TMS_BM25_K1", "1.2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Source != "crawl" || cfg.Corpus.Path != "/data/image_data.json" {
		t.Errorf("corpus not read from file: %+v", cfg.Corpus)
	}
	if cfg.Models.VSM.Components != 12 || cfg.Models.VSM.Granularity != "sentence" {
		t.Errorf("vsm not read from file: %+v", cfg.Models.VSM)
	}
	if cfg.Models.VSM.ShortQueryBoost != 1.5 {
		t.Errorf("default boost lost after partial file: %v", cfg.Models.VSM.ShortQueryBoost)
	}
	if cfg.Models.BM25.K1 != 1.2 {
		t.Errorf("env override not applied: k1=%v", cfg.Models.BM25.K1)
	}
}

func TestDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.RateLimit != 600 || len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Models.LM.Epsilon != 1e-10 || cfg.Models.VSM.Components != 100 {
		t.Errorf("models = %+v", cfg.Models)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Corpus.Source = "ftp" }},
		{"postgres source disabled", func(c *Config) { c.Corpus.Source = "postgres" }},
		{"negative k1", func(c *Config) { c.Models.BM25.K1 = -1 }},
		{"b above one", func(c *Config) { c.Models.BM25.B = 1.5 }},
		{"zero mu", func(c *Config) { c.Models.LM.Mu = 0 }},
		{"zero components", func(c *Config) { c.Models.VSM.Components = 0 }},
		{"bad granularity", func(c *Config) { c.Models.VSM.Granularity = "paragraph" }},
		{"bad reduction", func(c *Config) { c.Models.LM.Pipeline.Reduction = "lancaster" }},
		{"too many synonyms", func(c *Config) { c.Models.BM25.Pipeline.MaxSynonyms = 5 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// Package config loads service configuration from the environment.
// Both API keys are optional at startup: a missing PatentsView key is
// reported per request as a configuration error, and a missing Anthropic
// key degrades enrichment to placeholders.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port            int    `env:"PORT" env-default:"8080"`
	PatentsViewKey  string `env:"PATENTSVIEW_API_KEY"`
	AnthropicKey    string `env:"ANTHROPIC_API_KEY"`
	Model           string `env:"PATENT_SCOUT_MODEL" env-default:"claude-sonnet-4-20250514"`
	DBPath          string `env:"PATENT_SCOUT_DB"`
	UpstreamBaseURL string `env:"PATENT_SCOUT_UPSTREAM_URL"`

	EnrichLimit int  `env:"PATENT_SCOUT_ENRICH_LIMIT" env-default:"3"`
	EmptyStatus int  `env:"PATENT_SCOUT_EMPTY_STATUS" env-default:"404"`
	Landscape   bool `env:"PATENT_SCOUT_LANDSCAPE" env-default:"true"`
	Insights    bool `env:"PATENT_SCOUT_INSIGHTS" env-default:"false"`
	SimpleQuery bool `env:"PATENT_SCOUT_SIMPLE_QUERY" env-default:"false"`

	CacheSize int     `env:"PATENT_SCOUT_CACHE_SIZE" env-default:"512"`
	RateRPS   float64 `env:"PATENT_SCOUT_RATE_RPS" env-default:"10"`
	RateBurst int     `env:"PATENT_SCOUT_RATE_BURST" env-default:"20"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.EnrichLimit < 0 {
		return fmt.Errorf("PATENT_SCOUT_ENRICH_LIMIT must be >= 0, got %d", cfg.EnrichLimit)
	}
	if cfg.EmptyStatus != 404 && cfg.EmptyStatus != 500 {
		return fmt.Errorf("PATENT_SCOUT_EMPTY_STATUS must be 404 or 500, got %d", cfg.EmptyStatus)
	}
	if cfg.CacheSize < 1 {
		return fmt.Errorf("PATENT_SCOUT_CACHE_SIZE must be >= 1, got %v", cfg.CacheSize)
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CanonicalPolicyKeepExisting   = "keep_existing"
	CanonicalPolicyPreferComplete = "prefer_complete"

	LLMProviderNone      = "none"
	LLMProviderAnthropic = "anthropic"
	LLMProviderLocal     = "local"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"QL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"QL_DB_MAX_CONNS" default:"8"`

	ResolverAutoThreshold   float64 `envconfig:"RESOLVER_AUTO_THRESHOLD" default:"0.9"`
	ResolverReviewThreshold float64 `envconfig:"RESOLVER_REVIEW_THRESHOLD" default:"0.7"`
	ResolverFuzzyCutoff     float64 `envconfig:"RESOLVER_FUZZY_CUTOFF" default:"0.88"`
	ProvisionalAttach       bool    `envconfig:"PROVISIONAL_ATTACH" default:"true"`
	CanonicalPolicy         string  `envconfig:"CANONICAL_POLICY" default:"keep_existing"`
	QuoteLanguages          string  `envconfig:"QUOTE_LANGUAGES" default:"en,es,fr,de,it,pt"`

	VectorEnabled     bool          `envconfig:"VECTOR_ENABLED" default:"false"`
	EmbeddingEndpoint string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:"Qwen/Qwen3-Embedding-0.6B"`
	VectorTimeout     time.Duration `envconfig:"VECTOR_TIMEOUT" default:"5s"`

	LLMProvider       string        `envconfig:"LLM_PROVIDER" default:"none"`
	LLMModel          string        `envconfig:"LLM_MODEL" default:""`
	AnthropicAPIKey   string        `envconfig:"ANTHROPIC_API_KEY" default:""`
	LLMEndpoint       string        `envconfig:"LLM_ENDPOINT" default:"http://127.0.0.1:8845"`
	LLMTimeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"20s"`
	LLMMaxConcurrency int64         `envconfig:"LLM_MAX_CONCURRENCY" default:"4"`
	LLMRatePerSecond  float64       `envconfig:"LLM_RATE_PER_SECOND" default:"2"`

	DefaultAdminUser               string `envconfig:"DEFAULT_ADMIN_USER" default:"admin"`
	DefaultAdminPassword           string `envconfig:"DEFAULT_ADMIN_PASSWORD" default:""`
	DefaultAdminMustChangePassword bool   `envconfig:"DEFAULT_ADMIN_MUST_CHANGE_PASSWORD" default:"false"`
	CORSAllowedOrigins             string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("QL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("QL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("QL_DB_MIN_CONNS (%d) cannot exceed QL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.ResolverReviewThreshold <= 0 || c.ResolverReviewThreshold > 1 {
		return fmt.Errorf("RESOLVER_REVIEW_THRESHOLD must be in (0,1]")
	}
	if c.ResolverAutoThreshold <= 0 || c.ResolverAutoThreshold > 1 {
		return fmt.Errorf("RESOLVER_AUTO_THRESHOLD must be in (0,1]")
	}
	if c.ResolverReviewThreshold > c.ResolverAutoThreshold {
		return fmt.Errorf(
			"RESOLVER_REVIEW_THRESHOLD (%.2f) cannot exceed RESOLVER_AUTO_THRESHOLD (%.2f)",
			c.ResolverReviewThreshold,
			c.ResolverAutoThreshold,
		)
	}
	if c.ResolverFuzzyCutoff <= 0 || c.ResolverFuzzyCutoff > 1 {
		return fmt.Errorf("RESOLVER_FUZZY_CUTOFF must be in (0,1]")
	}

	switch c.CanonicalPolicy {
	case CanonicalPolicyKeepExisting, CanonicalPolicyPreferComplete:
	default:
		return fmt.Errorf("CANONICAL_POLICY must be %q or %q", CanonicalPolicyKeepExisting, CanonicalPolicyPreferComplete)
	}

	if c.VectorEnabled {
		if strings.TrimSpace(c.EmbeddingEndpoint) == "" {
			return fmt.Errorf("EMBEDDING_ENDPOINT is required when VECTOR_ENABLED=true")
		}
		if strings.TrimSpace(c.EmbeddingModel) == "" {
			return fmt.Errorf("EMBEDDING_MODEL is required when VECTOR_ENABLED=true")
		}
	}
	if c.VectorTimeout <= 0 {
		return fmt.Errorf("VECTOR_TIMEOUT must be > 0")
	}

	switch c.LLMProvider {
	case LLMProviderNone:
	case LLMProviderAnthropic:
		if strings.TrimSpace(c.AnthropicAPIKey) == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case LLMProviderLocal:
		if strings.TrimSpace(c.LLMEndpoint) == "" {
			return fmt.Errorf("LLM_ENDPOINT is required when LLM_PROVIDER=local")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of none, anthropic, local")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.LLMMaxConcurrency < 1 {
		return fmt.Errorf("LLM_MAX_CONCURRENCY must be >= 1")
	}
	if c.LLMRatePerSecond <= 0 {
		return fmt.Errorf("LLM_RATE_PER_SECOND must be > 0")
	}

	if strings.TrimSpace(c.DefaultAdminUser) == "" {
		return fmt.Errorf("DEFAULT_ADMIN_USER is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// QuoteLanguagesList is the ISO 639-1 set quote language detection picks from.
func (c *Config) QuoteLanguagesList() []string {
	if c == nil {
		return nil
	}
	return splitList(strings.ToLower(c.QuoteLanguages))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/cli"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/config"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/dedup"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/ingest"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/langdetect"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/llm"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/logging"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/resolver"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/review"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/vectorsearch"
)

// services is the engine wiring shared by every command that writes.
type services struct {
	resolver *resolver.Service
	dedup    *dedup.Service
	review   *review.Service
	ingest   *ingest.Service
}

func newServices(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*services, error) {
	dedupOpts := dedup.Options{
		CanonicalPolicy:   cfg.CanonicalPolicy,
		DetectLanguage:    langdetect.New(cfg.QuoteLanguagesList()).Detect,
		VerifyConcurrency: int(cfg.LLMMaxConcurrency),
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if verifier != nil {
		dedupOpts.Verifier = verifier
	}

	if cfg.VectorEnabled {
		embedder := vectorsearch.NewEmbedder(cfg.EmbeddingEndpoint)
		index := vectorsearch.NewIndex(pool, embedder, cfg.EmbeddingModel, cfg.VectorTimeout, logger)
		dedupOpts.Vector = index
		dedupOpts.Indexer = index
		logger.Info().
			Str("endpoint", embedder.Endpoint()).
			Str("model", cfg.EmbeddingModel).
			Msg("vector candidate search enabled")
	}

	resolverSvc := resolver.NewService(pool, resolver.Options{
		AutoThreshold:     cfg.ResolverAutoThreshold,
		ReviewThreshold:   cfg.ResolverReviewThreshold,
		FuzzyCutoff:       cfg.ResolverFuzzyCutoff,
		ProvisionalAttach: cfg.ProvisionalAttach,
	}, logger)
	dedupSvc := dedup.NewService(pool, dedupOpts, logger)

	return &services{
		resolver: resolverSvc,
		dedup:    dedupSvc,
		review:   review.NewService(pool, logger),
		ingest:   ingest.NewService(pool, resolverSvc, dedupSvc, logger),
	}, nil
}

// newVerifier returns nil when LLM_PROVIDER=none.
func newVerifier(cfg *config.Config, logger zerolog.Logger) (*llm.Verifier, error) {
	var completer llm.Completer
	switch cfg.LLMProvider {
	case config.LLMProviderNone:
		return nil, nil
	case config.LLMProviderAnthropic:
		completer = llm.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.LLMModel)
	case config.LLMProviderLocal:
		completer = llm.NewLocalCompleter(cfg.LLMEndpoint, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}

	retry := llm.DefaultRetryConfig()
	retry.Timeout = cfg.LLMTimeout
	logger.Info().
		Str("provider", completer.Name()).
		Int64("max_concurrency", cfg.LLMMaxConcurrency).
		Float64("rate_per_second", cfg.LLMRatePerSecond).
		Msg("llm pair verification enabled")
	return llm.NewVerifier(completer, llm.VerifierOptions{
		MaxConcurrency: cfg.LLMMaxConcurrency,
		RatePerSecond:  cfg.LLMRatePerSecond,
		Retry:          retry,
	}, logger), nil
}

// runtimeEnv is what a command has after flags, env file, config and logger
// are in place.
type runtimeEnv struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func parseFlags(fs *flag.FlagSet, args []string) (bool, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, 0
		}
		return false, 2
	}
	return true, 0
}

func loadRuntime(envLoader *cli.EnvLoader) (runtimeEnv, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return runtimeEnv{cfg: cfg, logger: logger}, nil
}

func connectPool(cfg *config.Config, timeout time.Duration) (*db.Pool, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

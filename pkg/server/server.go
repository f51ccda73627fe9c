// Package server provides the public entry point for initializing the
// coaching control plane server.
//
// Usage:
//
//	srv, err := server.New(ctx, config.Load())
//	defer srv.Close(ctx)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/coachkit/coachplane/internal/api"
	"github.com/coachkit/coachplane/internal/api/handlers"
	"github.com/coachkit/coachplane/internal/auth"
	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/internal/inference"
	"github.com/coachkit/coachplane/internal/knowledge"
	"github.com/coachkit/coachplane/internal/pipeline"
	"github.com/coachkit/coachplane/internal/service"
	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/internal/telemetry"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/rs/zerolog/log"
)

// Server holds the initialized control plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store (PostgreSQL when DATABASE_URL is set).
	Store store.Store

	// Service is the authorized coaching service behind Handler.
	Service *service.Service

	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	index             bleve.Index
	shutdownTelemetry func(context.Context) error
}

// New initializes all control plane components and returns a ready Server.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	primary, fallback, err := Drivers(cfg.Inference)
	if err != nil {
		dataStore.Close()
		return nil, err
	}
	client := inference.NewClient(primary, fallback, inference.Options{
		Timeout:    cfg.Inference.Timeout,
		MaxRetries: cfg.Inference.MaxRetries,
	})

	retriever, index, err := openKnowledge(ctx, cfg.Knowledge)
	if err != nil {
		dataStore.Close()
		return nil, err
	}

	svc := service.New(dataStore, retriever, client, pipeline.Config{
		Temperature:    cfg.Inference.Temperature,
		EvidenceBudget: cfg.Knowledge.Budget,
	})

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider(cfg.Auth.APIKeys))
	chain.RegisterProvider(auth.NewUserTokenProvider(cfg.Auth.TokenSecret))

	router := api.NewRouter(cfg, handlers.New(svc), chain)

	return &Server{
		Handler:           router,
		Store:             dataStore,
		Service:           svc,
		Config:            cfg,
		Port:              cfg.Port,
		index:             index,
		shutdownTelemetry: shutdown,
	}, nil
}

// Close releases the store and the knowledge index and flushes telemetry.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	errs = append(errs, s.Store.Close())
	if s.shutdownTelemetry != nil {
		errs = append(errs, s.shutdownTelemetry(ctx))
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.URL == "" {
		log.Info().Str("data_dir", cfg.DataDir).Msg("In-memory store initialized")
		return store.NewMemoryStore(cfg.DataDir), nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	log.Info().Int("max_connections", cfg.Database.MaxConnections).Msg("PostgreSQL store initialized")
	return pg, nil
}

// Drivers builds the primary and optional fallback inference drivers.
func Drivers(cfg config.InferenceConfig) (primary, fallback contracts.InferenceDriver, err error) {
	primary, err = driver(cfg.Provider, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.FallbackProvider != "" && !strings.EqualFold(cfg.FallbackProvider, cfg.Provider) {
		if fallback, err = driver(cfg.FallbackProvider, cfg); err != nil {
			return nil, nil, err
		}
	}

	ev := log.Info().Str("provider", primary.Kind())
	if fallback != nil {
		ev = ev.Str("fallback", fallback.Kind())
	}
	ev.Dur("timeout", cfg.Timeout).Int("max_retries", cfg.MaxRetries).Msg("Inference client initialized")
	return primary, fallback, nil
}

func driver(name string, cfg config.InferenceConfig) (contracts.InferenceDriver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn().Msg("ANTHROPIC_API_KEY is not set")
		}
		return inference.NewAnthropicDriver(inference.AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Prefill: cfg.AnthropicPrefill,
		}), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			log.Warn().Msg("OPENAI_API_KEY is not set")
		}
		return inference.NewOpenAIDriver(inference.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", name)
	}
}

// openKnowledge opens the evidence index and ingests the configured source.
// With neither an index path nor a source, retrieval is disabled.
func openKnowledge(ctx context.Context, cfg config.KnowledgeConfig) (contracts.KnowledgeRetriever, bleve.Index, error) {
	if cfg.IndexPath == "" && cfg.Source == "" {
		log.Info().Msg("Knowledge retrieval disabled")
		return knowledge.Noop{}, nil, nil
	}

	index, err := knowledge.OpenIndex(cfg.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge index: %w", err)
	}
	if cfg.Source != "" {
		if _, err := knowledge.NewIngester(index, knowledge.DefaultChunkerConfig()).IngestFile(ctx, cfg.Source); err != nil {
			index.Close()
			return nil, nil, fmt.Errorf("ingest knowledge source %s: %w", cfg.Source, err)
		}
	}

	var retriever contracts.KnowledgeRetriever = knowledge.NewIndexRetriever(index)
	if cfg.CacheSize > 0 {
		retriever = knowledge.NewCachedRetriever(retriever, cfg.CacheSize, cfg.CacheTTL)
	}
	return retriever, index, nil
}

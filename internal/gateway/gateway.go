// Package gateway exposes the compression engine over HTTP.
//
// DESIGN: The gateway owns the long-lived provider handles (tokenizer,
// embedder), the result cache, and the history store. Handlers never fail a
// request for provider problems - the engine degrades instead - so only
// request-shape errors map to 4xx.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/compaqt/compaqt/internal/config"
	"github.com/compaqt/compaqt/internal/embeddings"
	"github.com/compaqt/compaqt/internal/engine"
	"github.com/compaqt/compaqt/internal/packer"
	"github.com/compaqt/compaqt/internal/semantic"
	"github.com/compaqt/compaqt/internal/store"
	"github.com/compaqt/compaqt/internal/tokens"
)

// Gateway wires the engine, packer, and stores behind an HTTP server.
type Gateway struct {
	cfg      *config.Config
	engine   *engine.Engine
	packer   *packer.Packer
	cache    *store.Cache
	history  *store.History
	embedder semantic.Embedder
	server   *http.Server
}

// New builds a Gateway from config. Provider initialization failures are
// logged and degrade the service; they never abort startup.
func New(cfg *config.Config) *Gateway {
	var codec tokens.Codec
	if !cfg.Tokenizer.Disabled {
		codec = tokens.NewLazyTiktoken(cfg.Tokenizer.Encoding)
	}
	mapper := tokens.NewMapper(codec)

	embedder, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		log.Warn().Err(err).Msg("embedding provider unavailable, semantic reduction disabled")
		embedder = nil
	}

	cache := store.NewCache(cfg.Store.CacheTTL)

	var history *store.History
	if cfg.Store.HistoryPath != "" {
		history, err = store.OpenHistory(cfg.Store.HistoryPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Store.HistoryPath).Msg("history store unavailable")
			history = nil
		}
	}

	g := &Gateway{
		cfg:      cfg,
		engine:   engine.New(mapper, semantic.NewReducer(embedder), cache),
		packer:   packer.New(mapper),
		cache:    cache,
		history:  history,
		embedder: embedder,
	}
	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g
}

// Handler returns the routed handler with the middleware chain applied.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/minify", g.handleMinify)
	mux.HandleFunc("POST /v1/compress", g.handleCompress)
	mux.HandleFunc("POST /v1/combined", g.handleCombined)
	mux.HandleFunc("POST /v1/pack", g.handlePack)
	mux.HandleFunc("POST /v1/patch", g.handlePatch)
	mux.HandleFunc("POST /v1/download", g.handleDownload)
	mux.HandleFunc("GET /v1/stats", g.handleStats)
	mux.HandleFunc("GET /health", g.handleHealth)

	return panicRecovery(requestID(logging(mux)))
}

// Start runs the HTTP server until Shutdown or failure.
func (g *Gateway) Start() error {
	log.Info().Int("port", g.cfg.Server.Port).Msg("gateway listening")
	return g.server.ListenAndServe()
}

// Shutdown gracefully stops the server and releases provider handles.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)

	g.cache.Close()
	if g.history != nil {
		if cerr := g.history.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing history store")
		}
	}
	if closer, ok := g.embedder.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing embedding provider")
		}
	}
	return err
}

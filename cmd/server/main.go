// Command server runs the Voice Island engine: REST and websocket surface
// for the director, backed by Postgres and a generative text service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voiceisland/engine/internal/casting"
	"github.com/voiceisland/engine/internal/config"
	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/memory"
	"github.com/voiceisland/engine/internal/repository"
	"github.com/voiceisland/engine/internal/season"
	"github.com/voiceisland/engine/internal/server"
	"github.com/voiceisland/engine/internal/show"
	"github.com/voiceisland/engine/internal/tts"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var provider genclient.Provider
	switch cfg.LLMProvider {
	case "gemini":
		provider, err = genclient.NewGeminiProvider(ctx, cfg.GoogleAPIKey, cfg.LLMModel)
		if err != nil {
			return err
		}
	default:
		provider = genclient.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL)
	}
	gen := genclient.New(provider, cfg.LLMModel)

	var embedder memory.Embedder
	var recall show.Recaller
	if cfg.GoogleAPIKey != "" {
		genAIEmbedder, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return err
		}
		embedder = genAIEmbedder
		// Recall over-fetches so the reranker has candidates to drop.
		recall = memory.NewRecall(genAIEmbedder, store.Messages(), cfg.TopK*2, cfg.SimilarityThreshold)
	} else {
		slog.Info("no google api key, message recall disabled")
	}

	var synth tts.Synthesizer = tts.Disabled{}
	if cfg.TTSBaseURL != "" {
		synth = tts.NewHTTPSynthesizer(cfg.TTSBaseURL, cfg.WorkDir)
	}

	directory := casting.NewDirectory(store.Pools(), store.Characters(), store.Relationships(), nil)

	showOrch := show.New(show.Params{
		Gen:            gen,
		Characters:     store.Characters(),
		Conversations:  store.Conversations(),
		Messages:       store.Messages(),
		Synth:          synth,
		Recall:         recall,
		Embedder:       embedder,
		HistoryLimit:   cfg.HistoryLimit,
		TopK:           cfg.TopK,
		SummaryWorkers: cfg.SummaryWorkers,
	})
	defer showOrch.Close()

	seasonOrch := season.New(gen, store.Characters(), store.Conversations(), store.Messages(), store.Relationships(), showOrch)

	srv := server.New(store.Characters(), directory, showOrch, seasonOrch, store.WorldState(), store.Relationships(), store, gen)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "provider", cfg.LLMProvider, "model", cfg.LLMModel)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

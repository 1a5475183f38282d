package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirayalabs/kiraya/backend/internal/config"
	"github.com/kirayalabs/kiraya/backend/internal/handler"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
	"github.com/kirayalabs/kiraya/backend/internal/service/agent"
	"github.com/kirayalabs/kiraya/backend/internal/service/ai"
	"github.com/kirayalabs/kiraya/backend/internal/service/call"
	"github.com/kirayalabs/kiraya/backend/internal/service/session"
	"github.com/kirayalabs/kiraya/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("[main] no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load configuration: %v", err)
	}

	catalog := listing.NewMemoryStore(listing.Seed())
	sessions := session.NewStore(cfg.Session.TTL)

	// The polisher degrades internally: without Ark credentials every
	// reply falls back to the policy template, so the service is always
	// constructed.
	aiService := ai.NewService(cfg.AI, catalog)
	if cfg.AI.Enabled() {
		log.Printf("[main] reply polishing enabled with model %s", cfg.AI.Model)
	} else {
		log.Println("[main] Ark credentials missing, replies use policy templates only")
	}

	policy := agent.NewPolicy(catalog)
	callService := call.NewService(sessions, policy, aiService)

	speechService := speech.NewService(cfg.Speech)
	if cfg.Speech.ASREnabled() {
		log.Printf("[main] transcription enabled with Deepgram model %s", cfg.Speech.ASRModel)
	} else {
		log.Println("[main] DEEPGRAM_API_KEY missing, transcription disabled")
	}
	log.Printf("[main] synthesis provider: %s", cfg.Speech.TTSProvider)

	router := handler.NewRouter(catalog, callService, speechService, aiService, cfg.Server.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("[main] kiraya backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("[main] server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

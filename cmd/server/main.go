package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/api"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/classify"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/config"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/cost"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/providers"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/router"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/telemetry"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Load()
	log.Info().Interface("config", cfg.MaskSecrets()).Msg("loaded configuration")

	specs, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.ProvidersFile).Msg("failed to load provider catalog")
	}

	keywords, err := config.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.KeywordsFile).Msg("falling back to built-in classifier keywords")
		keywords = classify.Default()
	}

	estimator := cost.NewEstimator()
	store := state.NewStore(clock.Real{}, specs)
	clients := buildClients(cfg, specs, estimator)

	r := router.New(store, estimator, keywords, clients)
	handlers := api.NewHandlers(r)

	mux := chi.NewRouter()
	telemetry.MustRegisterMetrics()
	if shutdown, err := telemetry.InitOTEL(context.Background(), "llm-router", cfg.OtelEndpoint); err != nil {
		log.Warn().Err(err).Msg("OTEL init failed")
	} else {
		defer func() { _ = shutdown(context.Background()) }()
	}

	mux.Use(telemetry.RequestIDMiddleware)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if len(store.Providers()) == 0 {
			http.Error(w, "no providers configured", http.StatusServiceUnavailable)
			return
		}
		for _, spec := range store.Providers() {
			if b, ok := store.Breaker(spec.Name); ok && b.Snapshot().Status.String() != "OPEN" {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ready"))
				return
			}
		}
		http.Error(w, "every provider's circuit is open", http.StatusServiceUnavailable)
	})
	mux.Handle("/metrics", telemetry.MetricsHandler())

	mux.Post("/chat/completions", handlers.HandleChatCompletions)
	mux.Get("/providers", handlers.HandleListProviders)
	mux.Get("/routing/analytics", handlers.HandleRoutingAnalytics)
	mux.Post("/simulate/failure", adminGuard(cfg.AdminToken, handlers.HandleSimulateFailure))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Int("providers", len(specs)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// buildClients wires one provider Client per catalog entry. Real backends
// are only used when their credentials are present; the mock backend fills
// any remaining spec, which keeps local runs and the load generator usable
// without cloud credentials.
func buildClients(cfg config.Config, specs []state.ProviderSpec, estimator *cost.Estimator) providers.Registry {
	registry := make(providers.Registry, len(specs))

	for _, spec := range specs {
		switch {
		case cfg.EnableOpenAI && isOpenAIModel(spec.Model):
			registry[spec.Name] = providers.NewOpenAIClient(cfg.OpenAIKey, spec.CostPerToken)
		case cfg.EnableBedrock && isBedrockModel(spec.Model):
			c, err := providers.NewBedrockClient(context.Background(), cfg.BedrockRegion, spec.CostPerToken)
			if err != nil {
				log.Warn().Err(err).Str("provider", spec.Name).Msg("bedrock client init failed, falling back to mock")
				registry[spec.Name] = providers.NewMockClient(spec.Name, cfg.MockMeanLatencyMs, cfg.MockP95LatencyMs, cfg.MockErrorRate, spec.CostPerToken, estimator)
				continue
			}
			registry[spec.Name] = c
		default:
			registry[spec.Name] = providers.NewMockClient(spec.Name, cfg.MockMeanLatencyMs, cfg.MockP95LatencyMs, cfg.MockErrorRate, spec.CostPerToken, estimator)
		}
	}
	return registry
}

func isOpenAIModel(model string) bool {
	return len(model) >= 3 && model[:3] == "gpt"
}

func isBedrockModel(model string) bool {
	return len(model) >= 6 && model[:6] == "claude"
}

// adminGuard requires a bearer token matching token before delegating, the
// same scheme the reference server used for its admin routes. An empty
// token disables the guard, which is the default for local/dev runs.
func adminGuard(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	const prefix = "Bearer "
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

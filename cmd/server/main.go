package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/api"
	"pintarai.app/server/internal/config"
	"pintarai.app/server/internal/core"
	"pintarai.app/server/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer dbStore.Close()

	ctx := context.Background()
	llmService, err := core.NewLLMService(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
	}
	defer llmService.Close()

	env := midtrans.Sandbox
	if cfg.MidtransProduction {
		env = midtrans.Production
	}
	var coreClient coreapi.Client
	coreClient.New(cfg.MidtransServerKey, env)
	var snapClient snap.Client
	snapClient.New(cfg.MidtransServerKey, env)

	userService := core.NewUserService(dbStore, cfg.StartingTokenGrant)
	sessionService := core.NewSessionService(dbStore, llmService)
	paymentService := core.NewPaymentService(dbStore, &coreClient, &snapClient)

	apiHandler := api.NewAPIHandler(userService, sessionService, paymentService, llmService, cfg.JWTSecret)
	router := api.NewRouter(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

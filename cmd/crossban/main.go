package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossban/internal/bot"
	"crossban/internal/config"
	"crossban/internal/gateway"
	"crossban/internal/handler"
	"crossban/internal/logger"
	"crossban/internal/metrics"
	"crossban/internal/models"
	"crossban/internal/storage"
	"crossban/internal/sync"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	metrics.Init()

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database connection established")

	store := storage.NewStore(storage.GetDB())
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Load the trust index from persisted truth sources
	trust := models.NewTrustIndex(cfg.Federation.ExcludedUserID)
	sources, err := store.TruthSources.ListAll()
	if err != nil {
		log.Fatalf("Failed to load truth sources: %v", err)
	}
	trust.Load(sources)
	log.Printf("Loaded %d truth source entries", len(sources))

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize bot with configuration
	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	gw := gateway.NewTelegramGateway(botService.Bot)
	engine := sync.NewEngine(store, gw)
	reviewer := sync.NewReviewer(store, gw)
	filter := sync.NewTrustFilter(cfg.Federation, botService.Bot.ID(), trust)

	handler.Initialize(handler.Deps{
		Config:   cfg,
		Store:    store,
		Trust:    trust,
		Filter:   filter,
		Engine:   engine,
		Reviewer: reviewer,
		Gateway:  gw,
	})

	// Start HTTP server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(500 * time.Millisecond)
	log.Println("HTTP server is ready, starting bot handler...")

	// Setup and start update handlers
	handler.SetupHandlers(botService.Handler, botService.Bot)
	go botService.Start()

	// Propagation stays off until every dependency is wired up
	engine.Enable()
	log.Println("Ban sync engine enabled")

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	// Stop accepting new moderation events before tearing down transport
	engine.Disable()
	botService.Stop()

	// Gracefully shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server gracefully stopped")
}

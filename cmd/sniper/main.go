package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-sniper-bot-go/internal/config"
	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/ledger"
	"solana-sniper-bot-go/internal/logger"
	"solana-sniper-bot-go/internal/market"
	"solana-sniper-bot-go/internal/notify"
	"solana-sniper-bot-go/internal/registry"
	"solana-sniper-bot-go/internal/sniper"
	"solana-sniper-bot-go/internal/solana"
	"solana-sniper-bot-go/internal/wallet"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database and the slot store every durable state lives in
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	slots := database.NewSlotStore(db)
	log.Info("Database connection successful and schema migrated.")

	// Order ledger: load persisted orders once
	store := ledger.NewStore(slots, log)
	store.Initialize()

	// Config registry: durable only when the policy switch says so
	var registrySlots *database.SlotStore
	if cfg.Sniper.PersistConfigs {
		registrySlots = slots
	}
	reg := registry.New(registrySlots, log)

	notifier := notify.NewLogNotifier(log)

	// Chain-query client for balance display; degrades to zero, never fatal
	chain := solana.NewClient(&cfg.Solana, log, notifier)

	// Simulation engine and auto-sell watcher
	engine := sniper.NewEngine(&cfg.Simulation, store, reg, notifier, log)

	// Wallet session; disconnecting cancels every auto-sell watcher
	wlt := wallet.New(slots, log, engine.Watcher().CancelAll)

	traders := market.NewFollowedTraders(slots, log)
	tokens := market.NewWatchedTokens(slots, log)

	api := sniper.NewAPIServer(cfg.Server.Port, engine, reg, store, chain, wlt, traders, tokens, log)
	api.Start()

	// Wait for shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}
	engine.Shutdown()

	log.Info("Bot has been shut down.")
}

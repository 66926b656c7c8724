package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"antirisk.com/intelligence-unit/internal/api"
	"antirisk.com/intelligence-unit/internal/auth"
	"antirisk.com/intelligence-unit/internal/config"
	"antirisk.com/intelligence-unit/internal/core"
	"antirisk.com/intelligence-unit/internal/state"
	"antirisk.com/intelligence-unit/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize slot store
	slots, err := store.NewSlotStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer slots.Close()

	// Load application state from its slots
	appState, err := state.Load(slots)
	if err != nil {
		log.Fatalf("Failed to load application state: %v", err)
	}

	// Initialize generation gateway
	gateway, err := core.NewGateway(context.Background(), config.AppConfig.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize generation gateway: %v", err)
	}

	// Initialize the PIN gate (splash runs out on its own timer)
	gate, err := auth.NewGate(slots,
		time.Duration(config.AppConfig.SplashMillis)*time.Millisecond,
		time.Duration(config.AppConfig.PinErrorMillis)*time.Millisecond)
	if err != nil {
		log.Fatalf("Failed to initialize PIN gate: %v", err)
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(appState, gateway, gate)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streaming advisor sessions hold the response open.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harihar-backend/internal/config"
	"harihar-backend/internal/handlers"
	"harihar-backend/internal/llm"
	"harihar-backend/internal/llm/llamacpp"
	"harihar-backend/internal/logger"
	"harihar-backend/internal/router"
	"harihar-backend/internal/services"
)

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("✗ Configuration invalid", "error", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Log.Info("🚀 Starting HariHar Backend...", "env", cfg.Env)
	logger.Log.Info("✓ Configuration loaded")

	// ──── Step 2: Acquire Model Handle ────
	// One attempt only. A failure leaves the handle absent and the server degraded.
	runtime := llamacpp.New(cfg.RuntimeURL, cfg.RuntimeTimeout)
	handle := services.LoadModel(context.Background(), runtime, llm.LoadOptions{
		ModelID:   cfg.ModelName,
		Precision: cfg.ModelPrecision,
		Device:    cfg.ModelDevice,
	}, cfg.ModelLoadTimeout)
	if handle == nil {
		logger.Log.Warn("Serving without a model; /api/chat will return 503", "runtime", cfg.RuntimeURL)
	}

	// ──── Step 3: Initialize Services & Handlers ────
	chatService := services.NewChatService(handle, services.ChatOptions{
		ModelName:   cfg.ModelName,
		Concurrency: cfg.GenerationConcurrency,
		Timeout:     cfg.GenerationTimeout,
		Extraction:  cfg.ReplyExtraction,
	})
	healthHandler := handlers.NewHealthHandler(chatService)
	chatHandler := handlers.NewChatHandler(chatService)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(healthHandler, chatHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Log.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Log.Info(fmt.Sprintf("✓ HariHar Backend ready on http://localhost:%s", cfg.Port),
		"model", cfg.ModelName,
		"model_loaded", chatService.ModelLoaded(),
		"generation_concurrency", cfg.GenerationConcurrency,
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Log.Fatal("Server error", "error", err)
	}
}

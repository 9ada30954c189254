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

	"chatbot/config"
	"chatbot/controllers"
	"chatbot/logger"
	"chatbot/middlewares"
	"chatbot/routes"
	"chatbot/services"
	"chatbot/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize otel", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	completer, err := services.NewCompletionClient(cfg.OpenAI)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create completion client", "error", err)
		os.Exit(1)
	}

	chat := services.NewChatService(services.NewMemoryStore(), completer)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, controllers.NewChatController(chat))

	// WriteTimeout is left unset: a request waits for the completion API as
	// long as the completion client allows.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "server starting", "port", cfg.Port, "env", cfg.Env, "completion_client", cfg.OpenAI.Client)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "server shutdown error", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, chat *controllers.ChatController) *gin.Engine {
	router := gin.New()

	// otelgin opens the span first so Recovery and Logger see the trace.
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middlewares.Recovery())
	router.Use(middlewares.Logger())
	router.Use(middlewares.CORS(cfg.CORSAllowOrigin))

	routes.SetupRouter(router, chat)

	return router
}

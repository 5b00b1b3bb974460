package main

import (
	"context"
	"errors"
	"fmt"
	"listing-chat/auth"
	"listing-chat/infrastructure/grpc/server"
	"listing-chat/infrastructure/rest"
	"listing-chat/infrastructure/storage"
	"listing-chat/infrastructure/ws"
	"listing-chat/internal"
	"listing-chat/moderation"
	"listing-chat/runtime"
	"listing-chat/runtime/workers"
	"listing-chat/services"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a server failure,
// then shuts down so that deferred cleanups (badger) always execute.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, config.DebugPort, endpoint, storage.ChatMapper)
	}

	// 4. Chat components
	rooms := storage.NewRoomRepository(db, logger)
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(logger, rooms, registry, config.DeliveryTimeout, config.MaxDeliveryFailures)
	chatService := services.NewChatService(logger,
		rooms,
		storage.NewMessageRepository(db, logger),
		storage.NewReadTracker(db, logger),
		registry,
		broadcaster,
		services.HistoryLimits{Default: config.HistoryDefaultLimit, Max: config.HistoryMaxLimit},
	)
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	moderator, err := moderation.NewModerator(config.CensoredWordList(), replacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}
	chatService.WithModerator(moderator)
	tokens := auth.NewTokens(config.JWTSecret, config.AuthTokenDuration)
	wsHandler := ws.NewHandler(logger, chatService, ws.Config{
		SendBufferSize:   config.ConnectionBufferSize,
		DeliveryTimeout:  config.DeliveryTimeout,
		WriteWait:        config.WriteWait,
		PongWait:         config.PongWait,
		IdleTimeout:      config.IdleTimeout,
		MaxMessageSize:   config.MaxMessageSize,
		MaxContentLength: config.MaxContentLength,
	})
	router := rest.NewRouter(logger, rest.NewChatHandler(logger, chatService, wsHandler), tokens)

	// 5. Background workers
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewValueLogGC(logger, db, config.ValueLogGCInterval),
		workers.NewPresenceReporter(logger, registry, config.MetricInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	errChan := make(chan error, 2)

	// 6. HTTP server (REST + websocket)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
		// Websocket handlers derive their context from here and close on shutdown.
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. gRPC health server
	address := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	healthServer := server.NewHealthServer(logger)
	go healthServer.Watch(ctx, func() error {
		if db.IsClosed() {
			return fmt.Errorf("badger is closed")
		}
		return nil
	}, config.MetricInterval)
	go func() {
		if err := healthServer.Serve(listener); err != nil {
			errChan <- err
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		logger.Error("Server failure, shutting down", "error", runErr)
	}

	// 9. Graceful shutdown
	// Websocket connections are already closing through ctx, REST calls get ShutdownTimeout to finish.
	logger.Info("Shutting down gracefully...")
	stop()
	healthServer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supervisorDone

	if runErr != nil {
		return exitRuntime, runErr
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

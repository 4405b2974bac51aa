package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdu-chat/campus-chat/internal/api"
	"github.com/bdu-chat/campus-chat/internal/chat"
	"github.com/bdu-chat/campus-chat/internal/config"
	"github.com/bdu-chat/campus-chat/internal/database"
	"github.com/bdu-chat/campus-chat/internal/directory"
	"github.com/bdu-chat/campus-chat/internal/faculty"
	"github.com/bdu-chat/campus-chat/internal/messages"
	"github.com/bdu-chat/campus-chat/internal/moderation"
	"github.com/bdu-chat/campus-chat/internal/realtime"
	"github.com/bdu-chat/campus-chat/internal/router"
	"github.com/bdu-chat/campus-chat/internal/settings"
	"github.com/bdu-chat/campus-chat/internal/streams"
	"github.com/bdu-chat/campus-chat/internal/sweeper"
	"github.com/bdu-chat/campus-chat/internal/worker"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}

	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg.DatabaseURL, database.Options{
		LogLevel:        cfg.LogLevel,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnectAttempts: cfg.DBConnectRetries,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	if cfg.RunMigrations {
		if err := database.RunMigrations(db, logger); err != nil {
			return err
		}
	}

	catalog := faculty.Default()
	if cfg.SeedDevData {
		if err := database.SeedDevData(db, catalog, logger); err != nil {
			return fmt.Errorf("failed to seed dev data: %w", err)
		}
	}

	store := messages.NewStore(db)
	blocks := moderation.NewBlocks(db)
	users := directory.New(db)
	settingsReader := settings.NewReader(db)
	local := router.NewLocal(router.NewRooms(), router.NewInboxes(blocks), logger)

	// Without Redis this instance delivers to its own connections only
	var fanout chat.Fanout = local
	if cfg.RedisURL != "" {
		publisher, err := streams.NewPublisher(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		stopRelay, err := streams.StartRelay(cfg.RedisURL, cfg.InstanceID, local, logger)
		if err != nil {
			return err
		}
		defer stopRelay()

		fanout = publisher
	}

	svc := chat.New(chat.Deps{
		Store:     store,
		Blocks:    blocks,
		Reports:   moderation.NewReports(db, store),
		Directory: users,
		Words:     settingsReader,
		Faculties: catalog,
		Local:     local,
		Fanout:    fanout,
		Logger:    logger,
	})

	sw := sweeper.New(store, settingsReader, cfg.SweepInterval, logger)
	switch cfg.SweepMode {
	case config.SweepModeAsynq:
		stopWorker, err := worker.Start(cfg, sw, logger)
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := worker.StartScheduler(cfg, logger)
		if err != nil {
			return err
		}
		defer stopScheduler()

		if err := worker.InitClient(cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to create task client: %w", err)
		}
		defer worker.CloseClient()

		// Sweep once at startup instead of waiting a full interval
		if err := worker.EnqueueRetentionSweep(cfg.SweepInterval); err != nil {
			logger.Warn("Failed to enqueue startup sweep", "error", err)
		}
	default:
		go sw.Run(ctx)
	}

	validator, err := realtime.NewValidator()
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("bdu_chat_session", sessionStore))

	api.Register(r, api.Deps{
		Chat:        svc,
		Settings:    settingsReader,
		Faculties:   catalog,
		Users:       users,
		WebSocket:   realtime.NewHandler(svc, validator, cfg.WSAllowedOrigins, logger).Serve,
		DevSessions: !cfg.IsProduction(),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "instance_id", cfg.InstanceID, "sweep_mode", cfg.SweepMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Command roomsd runs the rooms backend: the REST API, the room registry
// backed by PostgreSQL and Redis, and the background sweep workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/studyhall/rooms-backend/api"
	"github.com/studyhall/rooms-backend/api/validator"
	"github.com/studyhall/rooms-backend/postgres"
	"github.com/studyhall/rooms-backend/redis"
	"github.com/studyhall/rooms-backend/registry"
	"github.com/studyhall/rooms-backend/task"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("Exiting", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file loaded", "error", err.Error())
	}

	apiAddr := envOr("API_ADDR", ":8080")
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pg, err := postgres.Connect(connectCtx, dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	cache, err := redis.Connect(connectCtx, redisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	reg := &registry.Registry{
		Logger:   logger,
		Store:    pg,
		Cache:    cache,
		Notifier: registry.LogNotifier{Logger: logger},
	}
	defer reg.Close()

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	worker := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 5})
	handler := &task.Handler{Logger: logger, Registry: reg}
	if err := worker.Start(handler.Mux()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer worker.Shutdown()

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 10m", asynq.NewTask(task.TypeSweepInvites, nil)); err != nil {
		return fmt.Errorf("register invite sweep: %w", err)
	}
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(task.TypeSweepArchive, nil)); err != nil {
		return fmt.Errorf("register archive sweep: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	srv := &http.Server{
		Addr: apiAddr,
		Handler: &api.API{
			Logger: logger,
			Core:   reg,
			Val:    validator.New(),
		},
	}
	errs := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", apiAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulsetrace/pulsetrace/internal/config"
	"github.com/pulsetrace/pulsetrace/internal/engine"
	"github.com/pulsetrace/pulsetrace/internal/httpserver"
	"github.com/pulsetrace/pulsetrace/internal/store"
	"github.com/pulsetrace/pulsetrace/internal/store/postgres"
	"github.com/pulsetrace/pulsetrace/internal/store/sqlite"
)

// main boots the service: config → store → schema → engine → HTTP server.
func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	eng := engine.New(st, engine.WithLogger(logger))

	router := httpserver.NewRouter(cfg, st, eng)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server started", "port", cfg.Port, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Drain in-flight requests on SIGINT/SIGTERM before exiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

// openStore connects the configured backend and ensures its schema so
// `docker compose up --build` is enough.
func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	default:
		st, err := postgres.New(cfg.DBURL)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(context.Background()); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}
}

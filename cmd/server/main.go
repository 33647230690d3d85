// Package main provides the entry point for the CSV export server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/snowflakedb/gosnowflake"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/connection"
	"github.com/lee-lindley/app-csv-pkg/pkg/metrics"
	"github.com/lee-lindley/app-csv-pkg/pkg/query"
	"github.com/lee-lindley/app-csv-pkg/pkg/sink"
	"github.com/lee-lindley/app-csv-pkg/server/handlers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connMgr, err := connection.Open(ctx, cfg.Driver, cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := connMgr.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	exportDir, err := sink.NewDirectory(cfg.ExportDir)
	if err != nil {
		log.Printf("Failed to prepare export directory: %v", err)
		return
	}

	term, err := sink.ParseLineTerminator(cfg.LineTerminator)
	if err != nil {
		log.Printf("Invalid line terminator: %v", err)
		return
	}

	m := metrics.New()
	executor := query.NewExecutor(connMgr)
	executor.SetMetrics(m)

	jobs := query.NewJobManager(cfg.JobTTL)
	defer jobs.Close()

	exportHandler := handlers.NewExportHandler(executor, exportDir, term, jobs)
	healthHandler := handlers.NewHealthHandler(connMgr.Driver())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api/v1", exportHandler.Routes)

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting CSV export server on port %s (driver %s, exports in %s)", cfg.Port, connMgr.Driver(), exportDir.Path())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Printf("Shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server failed: %v", err)
	}
}

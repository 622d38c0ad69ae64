/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the migraine context engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the metric source, aggregator, and tracker
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: migraine.db)
                  Use ":memory:" for an in-memory database
  -fetch-timeout  Deadline applied to each context aggregation
  -sim-seed       Seed for the simulated metric source (no real
                  provider integration ships in this binary)
  -sim-days       How many trailing days to seed
  -unauthorized   Start with the provider gate closed, to exercise the
                  save-without-context path

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/migraine-engine/api"
	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
	"github.com/warp/migraine-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "migraine.db", "SQLite database path")
	fetchTimeout := flag.Duration("fetch-timeout", 30*time.Second, "per-day aggregation deadline")
	simSeed := flag.Int64("sim-seed", 42, "simulated metric source seed")
	simDays := flag.Int("sim-days", 14, "days of simulated data to seed")
	unauthorized := flag.Bool("unauthorized", false, "start with the provider gate closed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Metric source: this binary ships with the simulated provider; a
	// real integration would drop in behind the same interface.
	sim := health.NewSimulatedSource()
	sim.Seed(*simSeed, *simDays)

	gate := health.StaticGate(!*unauthorized)
	aggregator := health.NewAggregator(timeoutSource{sim, *fetchTimeout}, logger)
	tracker := attack.NewTracker(store, aggregator, gate, logger)

	// Log tracker activity for anyone tailing the server.
	events, cancelEvents := tracker.Subscribe()
	defer cancelEvents()
	go func() {
		for e := range events {
			logger.Debug("state change", "kind", string(e.Kind))
		}
	}()

	handler := api.NewHandler(tracker, gate, logger)
	handler.Sim = sim
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d/api", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// timeoutSource bounds every query with a deadline so a stalled provider
// degrades to absent fields instead of hanging the fetch.
type timeoutSource struct {
	source  health.MetricSource
	timeout time.Duration
}

func (t timeoutSource) QueryDurationAggregate(ctx context.Context, kind health.MetricKind, w health.Window) ([]health.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.source.QueryDurationAggregate(ctx, kind, w)
}

func (t timeoutSource) QueryCumulativeStatistic(ctx context.Context, kind health.MetricKind, w health.Window, stat health.Statistic, unit health.Unit) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.source.QueryCumulativeStatistic(ctx, kind, w, stat, unit)
}

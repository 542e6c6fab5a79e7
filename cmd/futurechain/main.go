package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"futurechain/config"
	"futurechain/core/events"
	"futurechain/core/state"
	"futurechain/native/common"
	"futurechain/native/futures"
	"futurechain/observability"
	"futurechain/observability/logging"
	"futurechain/storage"
	"futurechain/storage/trie"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FUTURECHAIN_ENV"))
	logger := logging.Setup("futurechain", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		logger.Error("Failed to open state trie", slog.Any("error", err))
		os.Exit(1)
	}
	manager := state.NewManager(tr)

	engine := futures.NewEngine()
	engine.SetState(manager)
	engine.SetLogger(logger.With(slog.String("component", "futures")))
	engine.SetPauses(common.NewStaticPauses(cfg.PausedModules))
	engine.SetEmitter(observability.NewMetricsEmitter(events.NoopEmitter{}))
	engine.SetMetrics(observability.Futures())
	if err := engine.Initialize(); err != nil {
		logger.Error("Failed to initialise futures module", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}

	go func() {
		logger.Info("Metrics endpoint listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("network", cfg.NetworkName))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown", slog.Any("error", err))
	}
	if _, err := manager.Commit(); err != nil {
		logger.Error("Failed to commit state", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

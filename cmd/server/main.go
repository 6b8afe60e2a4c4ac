package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arbitrage-core/internal/config"
	"arbitrage-core/internal/engine"
	"arbitrage-core/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer log.Sync() //nolint:errcheck

	eng := engine.New(cfg.Engine, log)

	runCtx, cancelRun := context.WithCancel(context.Background())
	if err := eng.Start(runCtx, 4); err != nil {
		log.Error("failed to start engine", utils.Err(err))
		cancelRun()
		os.Exit(1)
	}

	router := setupRoutes(eng)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", utils.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", utils.Err(err))
	}
	if err := eng.Stop(); err != nil {
		log.Error("engine failed to stop cleanly", utils.Err(err))
	}

	log.Info("server exited")
}

// setupRoutes wires the operational surface: a Prometheus scrape
// endpoint and a liveness/readiness probe reporting the engine's
// running stats. A full REST dashboard lives outside this core.
func setupRoutes(eng *engine.Engine) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthzHandler(eng)).Methods(http.MethodGet)
	return r
}

func healthzHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := eng.GetPerformanceStats()
		w.Header().Set("Content-Type", "application/json")
		if !stats.Running {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(stats)
	}
}

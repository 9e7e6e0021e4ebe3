package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/airspace"
	"github.com/skyvern-ops/sora-engine/internal/api"
	"github.com/skyvern-ops/sora-engine/internal/assessment"
	"github.com/skyvern-ops/sora-engine/internal/config"
	"github.com/skyvern-ops/sora-engine/internal/fleet"
	"github.com/skyvern-ops/sora-engine/internal/landuse"
	"github.com/skyvern-ops/sora-engine/internal/policy"
	"github.com/skyvern-ops/sora-engine/internal/population"
	"github.com/skyvern-ops/sora-engine/internal/storage/sqlite"
	"github.com/skyvern-ops/sora-engine/internal/weather"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting SORA assessment engine",
		logger.String("config", *configPath),
		logger.String("db", cfg.Storage.Path))

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		log.Error("Failed to open database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Storage
	missionStorage := sqlite.NewMissionStorage(db, log)
	fleetStorage := sqlite.NewFleetStorage(db, log)
	policyStorage := sqlite.NewPolicyStorage(db, log)
	assessmentStorage := sqlite.NewAssessmentStorage(db, log)
	soraStorage := sqlite.NewSoraStorage(db, log)

	// Gatherers
	weatherClient := weather.NewClient(
		cfg.Weather.BaseURL,
		time.Duration(cfg.Weather.RequestTimeoutSeconds)*time.Second,
		log,
	)
	airspaceClient := airspace.NewClient(
		cfg.Airspace.BaseURL,
		time.Duration(cfg.Airspace.RequestTimeoutSeconds)*time.Second,
		log,
	)
	landUseClient := landuse.NewClient(
		cfg.LandUse.BaseURL,
		time.Duration(cfg.LandUse.RequestTimeoutSeconds)*time.Second,
		cfg.LandUse.PointBufferMeters,
		cfg.LandUse.RouteBufferMeters,
		log,
	)
	populationClient := population.NewClient(
		cfg.Population.BaseURL,
		cfg.Population.AlternateURL,
		time.Duration(cfg.Population.RequestTimeoutSeconds)*time.Second,
		cfg.Population.BufferMeters,
		log,
	)

	// Engine
	fleetLoader := fleet.NewLoader(missionStorage, fleetStorage, log)
	policyLoader := policy.NewLoader(policyStorage, cfg.Policy, log)
	delegate := assessment.NewOpenAIDelegate(cfg.OpenAI, log)

	service := assessment.NewService(
		fleetLoader,
		policyLoader,
		weatherClient,
		airspaceClient,
		landUseClient,
		populationClient,
		delegate,
		assessmentStorage,
		soraStorage,
		log,
	)

	router := api.NewRouter(service, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", logger.Error(err))
	}
}

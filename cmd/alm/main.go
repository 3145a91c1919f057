package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/meridian-fi/alm/internal/config"
	"github.com/meridian-fi/alm/internal/engine"
	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/strategy"
)

// main is the entry point for the ALM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("ALM Decision Core Starting...")

	params := config.DefaultParameters
	params.TotalCapitalUSD = config.TotalCapitalUSD
	if err := config.ValidateParameters(params); err != nil {
		log.Fatal().Err(err).Msg("Invalid parameters")
	}
	log.Info().Msg("Parameters validated successfully.")

	catalogue := strategy.DefaultCatalogue()

	// --- 2. Collaborator Wiring (with Safety Switch) ---
	var engineCfg engine.Config
	switch config.Mode {
	case "paper":
		log.Info().Str("snapshotFile", config.SnapshotFile).Msg("Initializing ALM in PAPER mode. No capital will move.")
		engineCfg = engine.Config{
			Source:    engine.NewFileSnapshotSource(config.SnapshotFile),
			Store:     engine.NewMemoryPositionStore(),
			Executor:  engine.NewPaperExecutor(params.ClaimGasCostUSD),
			Notifier:  engine.NewLogNotifier(),
			Catalogue: catalogue,
			Params:    params,
		}
	case "live":
		log.Fatal().Msg("Live mode requires an on-chain executor, which is not wired in this build. Set ALM_MODE=paper to run.")
	default:
		log.Fatal().Str("mode", config.Mode).Msg("ALM_MODE must be 'paper' or 'live'. Halting to prevent accidental execution.")
	}

	// --- 3. Create Engine Instance ---
	eng, err := engine.NewEngine(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}
	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Main Loop ---
	interval := time.Duration(config.CycleIntervalMinutes) * time.Minute
	log.Info().Str("interval", interval.String()).Msg("Starting engine main loop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.RunLoop(ctx, interval)
	log.Info().Msg("ALM stopped.")
}

package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode selects the execution backend ("paper" or "live").
	Mode string

	// SnapshotFile is the path the paper-mode snapshot source reads from.
	SnapshotFile string

	// CycleIntervalMinutes is the spacing between evaluation cycles.
	CycleIntervalMinutes uint64

	// TotalCapitalUSD is the capital base the engine manages.
	TotalCapitalUSD float64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("ALM_MODE")
	if err != nil {
		return err
	}

	SnapshotFile, err = getEnv("ALM_SNAPSHOT_FILE")
	if err != nil {
		return err
	}

	CycleIntervalMinutes, err = getEnvAsUint64("ALM_CYCLE_INTERVAL_MINUTES")
	if err != nil {
		return err
	}
	if CycleIntervalMinutes == 0 {
		return errors.New("ALM_CYCLE_INTERVAL_MINUTES must be positive")
	}

	TotalCapitalUSD, err = getEnvAsFloat64("ALM_TOTAL_CAPITAL_USD")
	if err != nil {
		return err
	}
	if TotalCapitalUSD <= 0 {
		return errors.New("ALM_TOTAL_CAPITAL_USD must be positive")
	}

	log.Debug().
		Str("Mode", Mode).
		Uint64("CycleIntervalMinutes", CycleIntervalMinutes).
		Float64("TotalCapitalUSD", TotalCapitalUSD).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64 retrieves an environment variable as a float64. Returns error if not set or invalid.
func getEnvAsFloat64(key string) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

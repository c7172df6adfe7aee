package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"brandstudio/internal/infra"
	"brandstudio/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	var down int
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of migrating up")
	flag.Parse()

	logger := infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", "migrate").Logger()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	if down > 0 {
		if err := migrations.Down(dbURL, down); err != nil {
			logger.Fatal().Err(err).Int("steps", down).Msg("migrate: rollback failed")
		}
		logger.Info().Int("steps", down).Msg("migrate: rolled back")
		return
	}
	if err := migrations.Up(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate: up failed")
	}
	logger.Info().Msg("migrate: schema is current")
}

package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mhlam/tradeflow/cmd/tradeflow/cmd"
	"github.com/mhlam/tradeflow/internal/logger"
)

func main() {
	// .env is optional; LOG_LEVEL, LOG_FORMAT and TRADEFLOW_CONFIG may
	// come from it.
	_ = godotenv.Load()

	slog.SetDefault(logger.New(logger.FromEnv()))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

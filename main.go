package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/server"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	logger.Info("starting server", "port", cfg.Port)
	if err := srv.Start(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/hverma/enrollhub/internal/pkg/logger"
	"github.com/hverma/enrollhub/internal/server"
)

// @title EnrollHub API
// @version 1.0
// @description Student enrollment and roll number allocation service

// @host localhost:8080
// @BasePath /api

func main() {
	// NewServer orchestrates config loading, database setup, dependency
	// wiring and router construction.
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until a shutdown signal arrives.
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
	os.Exit(0)
}

// Command stateserver runs the HTTP state replica: it accepts state updates
// from a conversation run and serves the merged view and the full history.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-lab/internal"
	"agent-lab/repositories"
	"agent-lab/runtime"
	"agent-lab/state"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host     string `envconfig:"STATE_SERVER_HOST" default:"127.0.0.1"`
	Port     int    `envconfig:"STATE_SERVER_PORT" default:"5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// ENFORCE_SCHEMA rejects updates whose keys fall outside the scenario
	// schema. Requires SCENARIO_PATH.
	EnforceSchema  bool   `envconfig:"ENFORCE_SCHEMA" default:"false"`
	ScenarioPath   string `envconfig:"SCENARIO_PATH"`
	BadgerFilepath string `envconfig:"BADGER_FILEPATH"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	serverConfig := state.ServerConfig{EnforceSchema: config.EnforceSchema}
	if config.ScenarioPath != "" {
		scenario, err := runtime.LoadScenario(config.ScenarioPath)
		if err != nil {
			return fmt.Errorf("scenario error: %w", err)
		}
		serverConfig.Schema = scenario.Schema()
	}
	if config.EnforceSchema && serverConfig.Schema == nil {
		return errors.New("ENFORCE_SCHEMA requires SCENARIO_PATH")
	}

	var repo state.HistoryAppender
	if config.BadgerFilepath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		repo = repositories.NewRunHistoryRepository(db, log)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: state.NewServer(serverConfig, repo, log).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting state server", "address", server.Addr, "enforce_schema", config.EnforceSchema)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("state server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

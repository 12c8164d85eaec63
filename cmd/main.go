package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agent-lab/bus"
	"agent-lab/domain"
	"agent-lab/internal"
	"agent-lab/llm"
	"agent-lab/repositories"
	"agent-lab/runtime"
	"agent-lab/runtime/workers"
	"agent-lab/state"
	"agent-lab/telemetry"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, drives one conversation run to completion,
// and centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Scenario
	scenario, err := runtime.LoadScenario(config.ScenarioPath)
	if err != nil {
		return fmt.Errorf("scenario error: %w", err)
	}
	schema := scenario.Schema()

	// 3. Optional transcript persistence (BadgerDB)
	var repo *repositories.RunHistoryRepository
	if config.BadgerFilepath != nil {
		db, err := badger.Open(badger.DefaultOptions(*config.BadgerFilepath).
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

	// 4. Shared state: local, mirrored, or fully replica-backed
	var client *state.ReplicaClient
	if config.StateReplicaURL != nil {
		client = state.NewReplicaClient(*config.StateReplicaURL, config.LLMTimeout, log)
	}
	store, err := state.NewStore(state.StoreMode(config.StateMode), schema, client, "group_chat", log)
	if err != nil {
		return fmt.Errorf("state store error: %w", err)
	}

	// 5. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	b := bus.New(log)
	completer := llm.NewClient(llm.Config{
		BaseURL: config.LLMBaseURL,
		APIKey:  config.LLMAPIKey,
		Model:   config.LLMModel,
		Timeout: config.LLMTimeout,
	}, log)

	sink := telemetry.NewBufferedSink()

	orchestratorConfig := runtime.DefaultConfig()
	orchestratorConfig.MinDelay = config.UIMinDelay
	orchestratorConfig.MaxDelay = config.UIMaxDelay
	orchestratorConfig.StateRetryBudget = config.StateRetryBudget
	wireConsole(&orchestratorConfig)

	orchestrator := runtime.NewOrchestrator(log, sup, b, completer, store,
		scenario, orchestratorConfig, sink, repo)
	if config.MemorySampleInterval != nil {
		orchestrator.Add(telemetry.NewSampler(log, sink, "group_chat", *config.MemorySampleInterval))
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := orchestrator.Run(ctx)

	// 7. Telemetry flush happens even when the run failed
	if config.TelemetryCSVPath != nil {
		if err := telemetry.ExportCSV(*config.TelemetryCSVPath, sink.Drain()); err != nil {
			log.Warn("Telemetry export failed", "error", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	// 8. Final state snapshot
	log.Info("Program stopped cleanly")
	if snap, ok := store.(interface{ Snapshot() map[string]any }); ok {
		for key, value := range snap.Snapshot() {
			log.Info("Final state", "key", key, "value", value)
		}
	}
	return nil
}

// wireConsole prints the chunk stream as it arrives, one colored header per
// message. Callbacks run on the UI worker goroutine, so no locking is needed.
func wireConsole(config *runtime.Config) {
	var current uuid.UUID
	config.OnChunk = func(chunk domain.DisplayChunk) {
		if chunk.MessageID != current {
			current = chunk.MessageID
			color.Cyan.Printf("\n%s:\n", chunk.Author)
		}
		if !chunk.Finished {
			fmt.Print(chunk.Text)
		}
	}
	config.OnMessage = func(author, text string) {
		fmt.Println()
	}
}

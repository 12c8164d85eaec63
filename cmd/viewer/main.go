// Command viewer renders a persisted run from BadgerDB: the conversation
// transcript and the recorded state history, as tables on stdout. It opens
// the database read-only so it can run next to a live conversation.
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"agent-lab/internal"
	"agent-lab/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"warn"`
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

	// BypassLockGuard allows opening while the conversation holds the lock.
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewRunHistoryRepository(db, log)

	transcript, err := repo.ListTranscript()
	if err != nil {
		return fmt.Errorf("reading transcript: %w", err)
	}
	printTranscript(transcript)

	states, err := repo.ListStates()
	if err != nil {
		return fmt.Errorf("reading state history: %w", err)
	}
	printStates(states)

	return nil
}

func printTranscript(records []repositories.TranscriptRecord) {
	color.Cyan.Printf("\nTranscript (%d messages)\n", len(records))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Source", "Content"})
	table.SetColWidth(80)
	for _, record := range records {
		table.Append([]string{
			record.At.Format(time.TimeOnly),
			record.Source,
			record.Content,
		})
	}
	table.Render()
}

func printStates(states []map[string]any) {
	color.Cyan.Printf("\nState history (%d updates)\n", len(states))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Key", "Value"})
	for i, entry := range states {
		keys := make([]string, 0, len(entry))
		for key := range entry {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				key,
				fmt.Sprintf("%v", entry[key]),
			})
		}
	}
	table.Render()
}

package main

import "time"

type Config struct {
	ScenarioPath     string        `env:"SCENARIO_PATH,required=true"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StateRetryBudget int           `env:"STATE_RETRY_BUDGET,default=3"`

	LLMBaseURL string        `env:"LLM_BASE_URL,required=true"`
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMModel   string        `env:"LLM_MODEL,required=true"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT,default=60s"`

	UIMinDelay time.Duration `env:"UI_MIN_DELAY,default=50ms"`
	UIMaxDelay time.Duration `env:"UI_MAX_DELAY,default=200ms"`

	// STATE_MODE selects the state store implementation: local (in-process
	// lock), mirrored (local + best-effort replica pushes), or replica
	// (remote history only). The last two require STATE_REPLICA_URL.
	StateMode string `env:"STATE_MODE,default=local"`

	// Optional features: transcript persistence, remote state replica,
	// telemetry export, and process memory sampling.
	BadgerFilepath       *string        `env:"BADGER_FILEPATH"`
	StateReplicaURL      *string        `env:"STATE_REPLICA_URL"`
	TelemetryCSVPath     *string        `env:"TELEMETRY_CSV_PATH"`
	MemorySampleInterval *time.Duration `env:"MEMORY_SAMPLE_INTERVAL"`
}

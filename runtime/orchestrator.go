package runtime

import (
	"context"
	"log/slog"
	"time"

	"agent-lab/bus"
	"agent-lab/contract"
	"agent-lab/domain"
	"agent-lab/repositories"
	"agent-lab/runtime/workers"
	"agent-lab/telemetry"
)

const initiatorNotice = "[ Group chat manager is sending an initiator message on behalf of the user ]"

type Config struct {
	TranscriptTopic  string
	UITopic          string
	MinDelay         time.Duration
	MaxDelay         time.Duration
	StateRetryBudget int

	// UI callbacks, invoked from the UI worker goroutine.
	OnChunk   func(chunk domain.DisplayChunk)
	OnMessage func(author, text string)
}

func DefaultConfig() Config {
	return Config{
		TranscriptTopic:  "group_chat",
		UITopic:          "ui",
		MinDelay:         50 * time.Millisecond,
		MaxDelay:         200 * time.Millisecond,
		StateRetryBudget: 3,
	}
}

// Orchestrator assembles one run: a selector, one participant per role, the
// UI consumer, and optional recorder/extra workers, all under supervision.
// Every component receives its collaborators explicitly; nothing reaches a
// store or bus it wasn't handed.
type Orchestrator struct {
	log       *slog.Logger
	sup       contract.ISupervisor
	bus       *bus.Bus
	completer contract.Completer
	store     contract.StateStore
	scenario  Scenario
	config    Config
	sink      telemetry.Sink
	repo      *repositories.RunHistoryRepository
	extra     []contract.Worker

	fatal    chan error
	finished chan struct{}
}

func NewOrchestrator(log *slog.Logger, sup contract.ISupervisor, b *bus.Bus,
	completer contract.Completer, store contract.StateStore,
	scenario Scenario, config Config, sink telemetry.Sink,
	repo *repositories.RunHistoryRepository) *Orchestrator {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Orchestrator{
		log:       log,
		sup:       sup,
		bus:       b,
		completer: completer,
		store:     store,
		scenario:  scenario,
		config:    config,
		sink:      sink,
		repo:      repo,
		fatal:     make(chan error, 1),
		finished:  make(chan struct{}),
	}
}

// Add registers extra supervised workers (telemetry samplers and the like).
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.extra = append(o.extra, worker...)
}

// Run drives the conversation until the selector finishes, a fatal protocol
// error occurs, or ctx is canceled. It returns only after every supervised
// worker has stopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	stream := workers.StreamConfig{
		Topic:    o.config.UITopic,
		MinDelay: o.config.MinDelay,
		MaxDelay: o.config.MaxDelay,
	}

	// Preparation phase: every subscription is created here, before any
	// publish, so the seed message cannot be missed.
	ui := workers.NewUIWorker(o.log, o.bus, o.config.UITopic)
	ui.OnChunk = o.config.OnChunk
	ui.OnMessage = o.config.OnMessage

	selector := workers.NewSelectorWorker(o.log, o.bus, o.completer,
		o.scenario.DomainRoles(),
		workers.SelectorConfig{
			TranscriptTopic: o.config.TranscriptTopic,
			Stream:          stream,
			MaxRounds:       o.scenario.MaxRounds,
		},
		o.sink, o.fatal, o.finished)

	o.sup.Add(ui, selector)

	schema := o.scenario.Schema()
	for _, role := range o.scenario.DomainRoles() {
		participant := workers.NewParticipantWorker(o.log, o.bus, role,
			o.completer, o.store, schema,
			workers.ParticipantConfig{
				TranscriptTopic:  o.config.TranscriptTopic,
				Stream:           stream,
				StateRetryBudget: o.config.StateRetryBudget,
			},
			o.sink, o.fatal)
		o.sup.Add(participant)
	}

	if o.repo != nil {
		o.sup.Add(workers.NewRecorderWorker(o.log, o.bus, o.config.TranscriptTopic, o.repo))
	}
	o.sup.Add(o.extra...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	supDone := make(chan struct{})
	go func() {
		o.sup.Run(runCtx)
		close(supDone)
	}()

	if err := o.seed(runCtx, stream); err != nil {
		cancel()
		<-supDone
		return err
	}

	var runErr error
	select {
	case <-runCtx.Done():
		runErr = ctx.Err()
	case runErr = <-o.fatal:
		o.log.Error("Fatal protocol error, aborting run", "error", runErr)
	case <-o.finished:
		o.log.Info("Conversation finished")
	}

	cancel()
	<-supDone
	return runErr
}

// seed streams an initiator notice to the UI, then publishes the scenario
// task as the first transcript message on behalf of the user.
func (o *Orchestrator) seed(ctx context.Context, stream workers.StreamConfig) error {
	if err := workers.StreamToUI(ctx, o.bus, stream, "System", initiatorNotice); err != nil {
		return err
	}
	return workers.StreamToUIAndTranscript(ctx, o.bus, stream,
		o.config.TranscriptTopic, "User", o.scenario.Task)
}

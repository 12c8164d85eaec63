package workers

import (
	"context"
	"fmt"
	"log/slog"

	"agent-lab/bus"
	"agent-lab/contract"
	"agent-lab/domain"
	agenterrors "agent-lab/errors"
	"agent-lab/state"
	"agent-lab/telemetry"
)

type ParticipantConfig struct {
	TranscriptTopic  string
	Stream           StreamConfig
	StateRetryBudget int
}

// ParticipantWorker is the per-role agent: idle until a TurnGrant, then one
// generation call, a bounded state extraction/commit, and publication of the
// utterance as UI chunks followed by one transcript message. The state
// commit always happens before any publication.
type ParticipantWorker struct {
	log       *slog.Logger
	role      domain.Role
	bus       *bus.Bus
	sub       *bus.Subscription
	completer contract.Completer
	store     contract.StateStore
	extractor *state.Extractor
	config    ParticipantConfig
	sink      telemetry.Sink
	fatal     chan<- error

	reportPrompt string
	chatHistory  []domain.ChatMessage
	stateHistory []domain.ChatMessage
}

func NewParticipantWorker(log *slog.Logger, b *bus.Bus, role domain.Role,
	completer contract.Completer, store contract.StateStore, schema state.Schema,
	config ParticipantConfig, sink telemetry.Sink, fatal chan<- error) *ParticipantWorker {
	if config.StateRetryBudget <= 0 {
		config.StateRetryBudget = 3
	}
	return &ParticipantWorker{
		log:          log.With("role", role.Name),
		role:         role,
		bus:          b,
		sub:          b.Subscribe(role.Name, role.Name, config.TranscriptTopic),
		completer:    completer,
		store:        store,
		extractor:    state.NewExtractor(schema),
		config:       config,
		sink:         sink,
		fatal:        fatal,
		reportPrompt: stateReportPrompt(schema),
	}
}

func (w *ParticipantWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.sub.Receive(ctx)
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case domain.TranscriptMessage:
			w.handleTranscript(m)
		case domain.TurnGrant:
			if err := w.takeTurn(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// The protocol cannot proceed without this turn's utterance.
				w.fatal <- fmt.Errorf("role %q failed its turn: %w", w.role.Name, err)
				return nil
			}
		default:
			w.log.Warn("Unexpected message kind", "message", fmt.Sprintf("%T", msg))
		}
	}
}

// handleTranscript mirrors the shared transcript into the private chat
// history. The agent's own utterances are already there as assistant turns.
func (w *ParticipantWorker) handleTranscript(msg domain.TranscriptMessage) {
	if msg.Source == w.role.Name {
		return
	}
	w.chatHistory = append(w.chatHistory,
		domain.UserChatMessage("system", "Transferred to "+msg.Source),
		domain.UserChatMessage(msg.Source, msg.Content),
	)
}

func (w *ParticipantWorker) takeTurn(ctx context.Context) error {
	defer telemetry.Track(w.sink, w.role.Name, "handle_turn")()

	w.chatHistory = append(w.chatHistory,
		domain.UserChatMessage("system",
			fmt.Sprintf("Transferred to %s, adopt the persona immediately.", w.role.Name)))

	persona := domain.SystemChatMessage(w.role.SystemMessage)
	utterance, err := w.completer.Complete(ctx, append([]domain.ChatMessage{persona}, w.chatHistory...))
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	w.chatHistory = append(w.chatHistory, domain.AssistantChatMessage(w.role.Name, utterance))

	// Commit strictly before any publication.
	w.reportState(ctx, utterance)

	return StreamToUIAndTranscript(ctx, w.bus, w.config.Stream,
		w.config.TranscriptTopic, w.role.Name, utterance)
}

// reportState derives a structured state update from the fresh utterance and
// commits it atomically. The regenerate loop is bounded: when the budget
// runs out the turn's state update is skipped, logged, and the conversation
// continues.
func (w *ParticipantWorker) reportState(ctx context.Context, utterance string) {
	defer telemetry.Track(w.sink, w.role.Name, "apply_state_update")()

	assistant := domain.AssistantChatMessage(w.role.Name, utterance)
	prompt := append([]domain.ChatMessage{domain.SystemChatMessage(w.reportPrompt)}, w.stateHistory...)
	prompt = append(prompt, assistant)

	var lastRaw string
	for attempt := 0; attempt < w.config.StateRetryBudget; attempt++ {
		if ctx.Err() != nil {
			return
		}

		raw, err := w.completer.Complete(ctx, prompt)
		if err != nil {
			w.log.Warn("State report generation failed", "attempt", attempt+1, "error", err)
			continue
		}
		lastRaw = raw

		candidate, err := w.extractor.Extract(raw)
		if err != nil {
			w.log.Debug("Discarding state report", "attempt", attempt+1, "error", err)
			continue
		}

		if err := w.store.Update(candidate); err != nil {
			w.log.Warn("State commit rejected", "error", err)
			return
		}

		w.stateHistory = append(w.stateHistory, domain.AssistantChatMessage(w.role.Name, raw))
		w.log.Info("State updated", "keys", len(candidate))
		return
	}

	w.log.Warn("Skipping state update for this turn",
		"error", agenterrors.ErrMalformedStateReport,
		"role", w.role.Name,
		"raw", lastRaw)
}

func stateReportPrompt(schema state.Schema) string {
	return fmt.Sprintf(`Please provide updates to the state based on your last message and the previous state, if any.
Respond with a single JSON object using only the following keys, replacing the example values with the actual values.
%s`, schema.ExampleJSON())
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agent-lab/bus"
	"agent-lab/contract"
	"agent-lab/domain"
	agenterrors "agent-lab/errors"
	"agent-lab/telemetry"

	"github.com/samber/lo"
)

const managerSource = "Manager"

const farewell = "I think it's enough iterations on the story! Thanks for collaborating!"

type SelectorConfig struct {
	TranscriptTopic string
	Stream          StreamConfig
	MaxRounds       int
}

// SelectorWorker arbitrates turns. It waits for a transcript message, asks
// the selection policy for the next role, and grants exactly one turn; a
// role never gets two consecutive grants while another is eligible. The
// conversation ends through the FINISH sentinel, or through the round limit
// as a hard stop.
type SelectorWorker struct {
	log       *slog.Logger
	bus       *bus.Bus
	sub       *bus.Subscription
	completer contract.Completer
	roles     []domain.Role
	config    SelectorConfig
	sink      telemetry.Sink
	fatal     chan<- error
	finished  chan<- struct{}

	previousSpeaker string
	rounds          int
	history         []domain.TranscriptMessage
}

func NewSelectorWorker(log *slog.Logger, b *bus.Bus, completer contract.Completer,
	roles []domain.Role, config SelectorConfig, sink telemetry.Sink,
	fatal chan<- error, finished chan<- struct{}) *SelectorWorker {
	return &SelectorWorker{
		log:       log,
		bus:       b,
		sub:       b.Subscribe("selector", config.TranscriptTopic),
		completer: completer,
		roles:     roles,
		config:    config,
		sink:      sink,
		fatal:     fatal,
		finished:  finished,
	}
}

func (w *SelectorWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.sub.Receive(ctx)
		if err != nil {
			return err
		}

		transcript, ok := msg.(domain.TranscriptMessage)
		if !ok {
			w.log.Warn("Unexpected message kind on transcript topic", "message", fmt.Sprintf("%T", msg))
			continue
		}

		done, err := w.handleMessage(ctx, transcript)
		if err != nil {
			// Fatal for the run, not for the supervisor: report and stop
			// granting instead of being restarted with lost state.
			w.fatal <- err
			return nil
		}
		if done {
			return nil
		}
	}
}

func (w *SelectorWorker) handleMessage(ctx context.Context, msg domain.TranscriptMessage) (bool, error) {
	defer telemetry.Track(w.sink, managerSource, "select_speaker")()

	w.history = append(w.history, msg)
	if lo.ContainsBy(w.roles, func(r domain.Role) bool { return r.Name == msg.Source }) {
		w.rounds++
	}

	// Hard stop: the prompt only hints at the limit, so the selector
	// guarantees termination within the configured number of rounds itself.
	if w.rounds >= w.config.MaxRounds {
		w.log.Info("Round limit reached, ending conversation", "rounds", w.rounds)
		return true, w.finish(ctx)
	}

	eligible := domain.Eligible(w.roles, w.previousSpeaker)

	decision, response, err := w.decideWithRetry(ctx, eligible)
	if err != nil {
		return false, fmt.Errorf("%w: role %q answered %q", err, managerSource, response)
	}

	if decision.Finished {
		return true, w.finish(ctx)
	}

	w.previousSpeaker = decision.Role
	w.log.Info("Granting turn", "role", decision.Role)
	w.bus.Publish(decision.Role, domain.TurnGrant{})
	return false, nil
}

// decideWithRetry asks the policy once more against the same eligible set
// when the first answer matches nothing; only the second miss is fatal.
func (w *SelectorWorker) decideWithRetry(ctx context.Context, eligible []domain.Role) (domain.Decision, string, error) {
	prompt := selectorPrompt(eligible, w.history, w.config.MaxRounds)

	var response string
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		response, err = w.completer.Complete(ctx, []domain.ChatMessage{domain.SystemChatMessage(prompt)})
		if err != nil {
			return domain.Decision{}, "", fmt.Errorf("selection policy call failed: %w", err)
		}

		decision, err := domain.Decide(eligible, response)
		if err == nil {
			return decision, response, nil
		}
		if !errors.Is(err, agenterrors.ErrInvalidSelection) {
			return domain.Decision{}, response, err
		}
		w.log.Warn("Selection matched no eligible role, retrying", "response", response)
	}
	return domain.Decision{}, response, agenterrors.ErrInvalidSelection
}

func (w *SelectorWorker) finish(ctx context.Context) error {
	if err := StreamToUI(ctx, w.bus, w.config.Stream, managerSource, farewell); err != nil {
		return err
	}
	close(w.finished)
	return nil
}

// selectorPrompt frames the choice as a role play game: eligible roles with
// descriptions, the full conversation, and a soft hint of the round limit.
func selectorPrompt(eligible []domain.Role, history []domain.TranscriptMessage, maxRounds int) string {
	roleLines := lo.Map(eligible, func(r domain.Role, _ int) string {
		return strings.TrimSpace(r.Name + ": " + r.Description)
	})
	names := strings.Join(domain.RoleNames(eligible), ", ")
	lines := lo.Map(history, func(m domain.TranscriptMessage, _ int) string {
		return m.Source + ": " + m.Content
	})

	return fmt.Sprintf(`You are in a role play game. The following roles are available:
%s.
Read the following conversation. Then select the next role from [%s] to play. Only return the role.

%s

Read the above conversation. Then select the next role from [%s] to play. if you think it's enough talking (for example they have talked for %d rounds), return 'FINISH'.
`, strings.Join(roleLines, "\n"), names, strings.Join(lines, "\n"), names, maxRounds)
}

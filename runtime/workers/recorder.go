package workers

import (
	"context"
	"log/slog"

	"agent-lab/bus"
	"agent-lab/domain"
	"agent-lab/repositories"

	"github.com/google/uuid"
)

// RecorderWorker persists every transcript message of the run, including the
// initiator seed. Persistence failures are logged and never interrupt the
// conversation.
type RecorderWorker struct {
	log  *slog.Logger
	sub  *bus.Subscription
	repo *repositories.RunHistoryRepository
}

func NewRecorderWorker(log *slog.Logger, b *bus.Bus, transcriptTopic string,
	repo *repositories.RunHistoryRepository) *RecorderWorker {
	return &RecorderWorker{
		log:  log,
		sub:  b.Subscribe("recorder", transcriptTopic),
		repo: repo,
	}
}

func (w *RecorderWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.sub.Receive(ctx)
		if err != nil {
			return err
		}

		transcript, ok := msg.(domain.TranscriptMessage)
		if !ok {
			continue
		}

		record := repositories.TranscriptRecord{
			ID:      uuid.New(),
			Source:  transcript.Source,
			Content: transcript.Content,
			At:      transcript.At,
		}
		if err := w.repo.StoreTranscript(record); err != nil {
			w.log.Warn("Failed to persist transcript message", "error", err)
		}
	}
}

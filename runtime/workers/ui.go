package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agent-lab/bus"
	"agent-lab/domain"

	"github.com/google/uuid"
)

// UIWorker consumes DisplayChunks and reassembles them per message id. The
// terminal chunk clears the pending entry, so a sequence redelivered whole
// after its terminator starts over as a fresh message rather than appending
// to the old one. OnChunk fires for every fragment; OnMessage fires once per
// finished sequence with the full reassembled text.
type UIWorker struct {
	log       *slog.Logger
	sub       *bus.Subscription
	OnChunk   func(chunk domain.DisplayChunk)
	OnMessage func(author, text string)

	pending map[uuid.UUID]*pendingMessage
}

type pendingMessage struct {
	author string
	text   strings.Builder
	seen   int
}

func NewUIWorker(log *slog.Logger, b *bus.Bus, uiTopic string) *UIWorker {
	return &UIWorker{
		log:     log,
		sub:     b.Subscribe("ui", uiTopic),
		pending: make(map[uuid.UUID]*pendingMessage),
	}
}

func (w *UIWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.sub.Receive(ctx)
		if err != nil {
			return err
		}

		chunk, ok := msg.(domain.DisplayChunk)
		if !ok {
			w.log.Warn("Unexpected message kind on UI topic", "message", fmt.Sprintf("%T", msg))
			continue
		}
		w.consume(chunk)
	}
}

func (w *UIWorker) consume(chunk domain.DisplayChunk) {
	if w.OnChunk != nil {
		w.OnChunk(chunk)
	}

	message, ok := w.pending[chunk.MessageID]
	if !ok {
		message = &pendingMessage{author: chunk.Author}
		w.pending[chunk.MessageID] = message
	}

	if !chunk.Finished {
		message.text.WriteString(chunk.Text)
		message.seen++
		return
	}

	// The terminator fragment is non-semantic and is not part of the text.
	delete(w.pending, chunk.MessageID)
	if w.OnMessage != nil {
		w.OnMessage(message.author, strings.TrimRight(message.text.String(), " "))
	}
}

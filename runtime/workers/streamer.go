package workers

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"agent-lab/bus"
	"agent-lab/domain"

	"github.com/google/uuid"
)

// StreamConfig paces chunked UI output for a human-readable cadence.
type StreamConfig struct {
	Topic    string
	MinDelay time.Duration
	MaxDelay time.Duration
}

// StreamToUI fans a completed utterance out as an ordered chunk sequence:
// one DisplayChunk per whitespace-delimited token, all sharing a fresh
// message id, followed by a terminal chunk with a non-semantic fragment and
// Finished=true. Between chunks it sleeps a random delay inside
// [MinDelay, MaxDelay].
func StreamToUI(ctx context.Context, b *bus.Bus, config StreamConfig, source, utterance string) error {
	messageID := uuid.New()

	for _, token := range strings.Fields(utterance) {
		b.Publish(config.Topic, domain.DisplayChunk{
			MessageID: messageID,
			Author:    source,
			Text:      token + " ",
			Finished:  false,
		})
		if err := pace(ctx, config); err != nil {
			return err
		}
	}

	b.Publish(config.Topic, domain.DisplayChunk{
		MessageID: messageID,
		Author:    source,
		Text:      " ",
		Finished:  true,
	})
	return nil
}

// StreamToUIAndTranscript streams the utterance to the UI topic, then
// publishes it whole to the shared transcript topic. UI first, transcript
// second, matching the turn protocol's ordering.
func StreamToUIAndTranscript(ctx context.Context, b *bus.Bus, config StreamConfig, transcriptTopic, source, utterance string) error {
	if err := StreamToUI(ctx, b, config, source, utterance); err != nil {
		return err
	}
	b.Publish(transcriptTopic, domain.TranscriptMessage{
		Source:  source,
		Content: utterance,
		At:      time.Now().UTC(),
	})
	return nil
}

func pace(ctx context.Context, config StreamConfig) error {
	delay := config.MinDelay
	if span := config.MaxDelay - config.MinDelay; span > 0 {
		delay += rand.N(span)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

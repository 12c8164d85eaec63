package bus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"agent-lab/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishOrdering(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("consumer", "transcript")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b.Publish("transcript", domain.TranscriptMessage{Source: "a", Content: "first"})
	b.Publish("transcript", domain.TranscriptMessage{Source: "a", Content: "second"})
	b.Publish("transcript", domain.TranscriptMessage{Source: "a", Content: "third"})

	for _, want := range []string{"first", "second", "third"} {
		msg, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, msg.(domain.TranscriptMessage).Content)
	}
	assert.Zero(t, sub.Pending())
}

func TestPublishWithoutSubscriberIsNoOp(t *testing.T) {
	b := testBus()
	// Must not block or panic.
	b.Publish("nobody-listens", domain.TurnGrant{})
}

func TestSubscribeMultipleTopicsSharesOneInbox(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("writer", "writer", "transcript")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b.Publish("writer", domain.TurnGrant{})
	b.Publish("transcript", domain.TranscriptMessage{Source: "editor", Content: "hello"})

	msg, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, domain.TurnGrant{}, msg)

	msg, err = sub.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, domain.TranscriptMessage{}, msg)
}

func TestTopicsAreIsolated(t *testing.T) {
	b := testBus()
	writer := b.Subscribe("writer", "writer")
	editor := b.Subscribe("editor", "editor")

	b.Publish("writer", domain.TurnGrant{})

	assert.Equal(t, 1, writer.Pending())
	assert.Zero(t, editor.Pending())
}

func TestFanOutReachesEverySubscriber(t *testing.T) {
	b := testBus()
	first := b.Subscribe("first", "transcript")
	second := b.Subscribe("second", "transcript")

	b.Publish("transcript", domain.TranscriptMessage{Source: "a", Content: "shared"})

	assert.Equal(t, 1, first.Pending())
	assert.Equal(t, 1, second.Pending())
}

func TestReceiveBlocksUntilPublish(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("consumer", "transcript")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		msg, err := sub.Receive(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "late", msg.(domain.TranscriptMessage).Content)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Publish("transcript", domain.TranscriptMessage{Source: "a", Content: "late"})
	wg.Wait()
}

func TestReceiveHonorsContextCancellation(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("consumer", "transcript")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sub.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentPublishersLoseNothing(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("consumer", "transcript")

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				b.Publish("transcript", domain.TranscriptMessage{Source: "p", Content: "msg"})
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < publishers*perPublisher; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}
	assert.Zero(t, sub.Pending())
}

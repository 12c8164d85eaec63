// Package domain contains core concepts of the group chat protocol.
// This file defines the closed set of message kinds carried by the bus.
// Handlers switch over the concrete type; there is no dynamic dispatch.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BusMessage is implemented by exactly three kinds: TurnGrant,
// TranscriptMessage and DisplayChunk.
type BusMessage interface {
	busMessage()
}

// TurnGrant authorizes one participant to produce the next utterance.
// It carries no payload; the addressed topic is the whole signal.
type TurnGrant struct{}

// TranscriptMessage is one committed utterance on the shared transcript topic.
type TranscriptMessage struct {
	Source  string
	Content string
	At      time.Time
}

// DisplayChunk is one fragment of a streamed utterance on the UI topic.
// The final chunk of a MessageID has Finished=true and a non-semantic
// terminator fragment as Text.
type DisplayChunk struct {
	MessageID uuid.UUID
	Author    string
	Text      string
	Finished  bool
}

func (TurnGrant) busMessage()         {}
func (TranscriptMessage) busMessage() {}
func (DisplayChunk) busMessage()      {}

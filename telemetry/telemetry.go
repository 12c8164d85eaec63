// Package telemetry records per-operation timing and memory figures for a
// run. The Sink is fire-and-forget: recording never blocks and never fails
// the caller.
package telemetry

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

type Event struct {
	Agent     string
	Operation string
	Duration  time.Duration
	RSSBytes  uint64
	At        time.Time
}

type Sink interface {
	Record(e Event)
}

type NopSink struct{}

func (NopSink) Record(Event) {}

// Track measures one operation, sampling duration and resident memory at its
// completion:
//
//	defer telemetry.Track(sink, "writer", "handle_turn")()
func Track(sink Sink, agent, operation string) func() {
	start := time.Now()
	return func() {
		sink.Record(Event{
			Agent:     agent,
			Operation: operation,
			Duration:  time.Since(start),
			RSSBytes:  currentRSS(),
			At:        time.Now().UTC(),
		})
	}
}

var (
	selfOnce sync.Once
	self     *process.Process
)

// currentRSS best-effort reads the process's resident set; 0 when the
// platform cannot provide it.
func currentRSS() uint64 {
	selfOnce.Do(func() {
		self, _ = process.NewProcess(int32(os.Getpid()))
	})
	if self == nil {
		return 0
	}
	memInfo, err := self.MemoryInfo()
	if err != nil {
		return 0
	}
	return memInfo.RSS
}

// BufferedSink accumulates events in memory until Drain. Recording is a
// short lock-guarded append, safe from any goroutine.
type BufferedSink struct {
	mu     sync.Mutex
	events []Event
}

func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

func (s *BufferedSink) Record(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

// Drain returns the buffered events and empties the buffer.
func (s *BufferedSink) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.events
	s.events = nil
	return drained
}

package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Sampler periodically records the process's resident memory. It runs as a
// supervised worker alongside the agents.
type Sampler struct {
	log      *slog.Logger
	sink     Sink
	label    string
	interval time.Duration
}

func NewSampler(log *slog.Logger, sink Sink, label string, interval time.Duration) *Sampler {
	return &Sampler{log: log, sink: sink, label: label, interval: interval}
}

func (s *Sampler) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			memInfo, err := p.MemoryInfo()
			if err != nil {
				s.log.Warn("Failed to sample process memory", "error", err)
				continue
			}
			s.sink.Record(Event{
				Agent:     s.label,
				Operation: "memory_sample",
				RSSBytes:  memInfo.RSS,
				At:        time.Now().UTC(),
			})
		}
	}
}

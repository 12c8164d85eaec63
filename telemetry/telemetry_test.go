package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackRecordsDuration(t *testing.T) {
	sink := NewBufferedSink()

	stop := Track(sink, "writer", "handle_turn")
	time.Sleep(10 * time.Millisecond)
	stop()

	events := sink.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "writer", events[0].Agent)
	assert.Equal(t, "handle_turn", events[0].Operation)
	assert.GreaterOrEqual(t, events[0].Duration, 10*time.Millisecond)
	assert.NotZero(t, events[0].RSSBytes)
}

func TestBufferedSinkDrainEmpties(t *testing.T) {
	sink := NewBufferedSink()
	sink.Record(Event{Agent: "writer"})
	sink.Record(Event{Agent: "editor"})

	require.Len(t, sink.Drain(), 2)
	assert.Empty(t, sink.Drain())
}

func TestBufferedSinkConcurrentRecords(t *testing.T) {
	sink := NewBufferedSink()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.Record(Event{Agent: "writer", Operation: "op"})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Drain(), 1000)
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	events := []Event{
		{Agent: "writer", Operation: "handle_turn", Duration: 1500 * time.Millisecond, At: time.Now().UTC()},
		{Agent: "group_chat", Operation: "memory_sample", RSSBytes: 1 << 20, At: time.Now().UTC()},
	}

	require.NoError(t, ExportCSV(path, events))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"agent", "operation", "duration_sec", "rss_bytes", "at"}, rows[0])
	assert.Equal(t, "writer", rows[1][0])
	assert.Equal(t, "1.500000", rows[1][2])
	assert.Equal(t, "1048576", rows[2][3])
}

package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ExportCSV writes the drained events of a BufferedSink to path. Called once
// at shutdown so buffered telemetry is flushed before exit.
func ExportCSV(path string, events []Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"agent", "operation", "duration_sec", "rss_bytes", "at"}); err != nil {
		return err
	}
	for _, e := range events {
		record := []string{
			e.Agent,
			e.Operation,
			fmt.Sprintf("%.6f", e.Duration.Seconds()),
			strconv.FormatUint(e.RSSBytes, 10),
			e.At.Format(time.RFC3339Nano),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

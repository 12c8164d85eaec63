// Package repositories persists the append-only history of a run: the
// transcript and the committed state reports. Persistence is optional; the
// run works identically without it.
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	transcriptPrefix = "transcript:"
	statePrefix      = "state:"
)

type TranscriptRecord struct {
	ID      uuid.UUID `json:"id"`
	Source  string    `json:"source"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type RunHistoryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRunHistoryRepository(db *badger.DB, log *slog.Logger) *RunHistoryRepository {
	return &RunHistoryRepository{db: db, log: log}
}

// historyKey builds "prefix{timestamp_padded}:{uuid}". The 19-digit zero
// padding keeps lexicographic order chronological; the UUID disambiguates
// two entries landing on the same nanosecond.
func historyKey(prefix string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", prefix, at.UnixNano(), id))
}

func (r *RunHistoryRepository) StoreTranscript(record TranscriptRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(historyKey(transcriptPrefix, record.At, record.ID), value)
	})
}

func (r *RunHistoryRepository) ListTranscript() ([]TranscriptRecord, error) {
	var records []TranscriptRecord
	err := r.scan(transcriptPrefix, func(value []byte) error {
		var record TranscriptRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	return records, err
}

// AppendState satisfies state.HistoryAppender so the replica server can use
// the same repository.
func (r *RunHistoryRepository) AppendState(entry map[string]any) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(historyKey(statePrefix, time.Now().UTC(), uuid.New()), value)
	})
}

func (r *RunHistoryRepository) ListStates() ([]map[string]any, error) {
	var entries []map[string]any
	err := r.scan(statePrefix, func(value []byte) error {
		var entry map[string]any
		if err := json.Unmarshal(value, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// scan iterates a prefix in key order. Thanks to the padded timestamp the
// result is naturally sorted by time.
func (r *RunHistoryRepository) scan(prefix string, visit func(value []byte) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				return visit(value)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

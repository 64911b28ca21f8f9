package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusNoData  Status = "no_data"
	StatusError   Status = "error"
)

// Entry is one line of the run history. Error is nil unless Status is StatusError.
type Entry struct {
	Timestamp      string  `json:"timestamp"`
	Date           string  `json:"date"`
	Status         Status  `json:"status"`
	RecordsScraped int     `json:"records_scraped"`
	Error          *string `json:"error"`
}

// NewEntry builds an entry, a nil `err` leaves Error unset.
func NewEntry(timestamp, date string, status Status, records int, err error) Entry {
	entry := Entry{
		Timestamp:      timestamp,
		Date:           date,
		Status:         status,
		RecordsScraped: records,
	}
	if err != nil {
		text := err.Error()
		entry.Error = &text
	}
	return entry
}

// Log is an append-only run history persisted as a JSON array.
type Log struct {
	path string
}

func NewLog(path string) Log {
	return Log{path: path}
}

func (l Log) Path() string {
	return l.path
}

// loadRaw reads the history keeping every entry exactly as it was written.
// A missing file is an empty history and so is one that is not a JSON
// array (the next Append rewrites it).
func (l Log) loadRaw() ([]json.RawMessage, error) {
	contents, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	err = json.Unmarshal(contents, &raw)
	if err != nil {
		slog.Warn("run history is malformed, starting over", "path", l.path, "err", err)
		return nil, nil
	}
	return raw, nil
}

// Load decodes every entry, entries that do not fit Entry are skipped but
// stay in the file.
func (l Log) Load() ([]Entry, error) {
	raw, err := l.loadRaw()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		var entry Entry
		err := json.Unmarshal(r, &entry)
		if err != nil {
			slog.Warn("skipping run history entry", "path", l.path, "index", i, "err", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Append adds `entry` after the existing entries and rewrites the whole
// file, earlier entries keep their keys and values even when they do not
// fit Entry.
func (l Log) Append(entry Entry) error {
	raw, err := l.loadRaw()
	if err != nil {
		return fmt.Errorf("load run history: %w", err)
	}
	encodedEntry, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	raw = append(raw, encodedEntry)

	encoded, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(l.path), 0777)
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	err = os.WriteFile(tmp, encoded, 0644)
	if err != nil {
		return fmt.Errorf("write run history: %w", err)
	}
	return os.Rename(tmp, l.path)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lendingScope/internal/model"
)

// snapshotRecord is one line of the watch output.
type snapshotRecord struct {
	ObservedAt time.Time  `json:"observed_at"`
	View       model.View `json:"view"`
}

// snapshotLog appends applied views to a JSONL file. Every record is written
// with a single write call, so a tailing reader never sees half a line.
type snapshotLog struct {
	file *os.File
	enc  *json.Encoder
}

func openSnapshotLog(path string) (*snapshotLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}
	return &snapshotLog{file: file, enc: json.NewEncoder(file)}, nil
}

func (l *snapshotLog) Append(observedAt time.Time, view model.View) error {
	if err := l.enc.Encode(snapshotRecord{ObservedAt: observedAt.UTC(), View: view}); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (l *snapshotLog) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}

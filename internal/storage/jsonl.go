package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapwatch/internal/model"
)

// ErrNoRecords is returned when the record log holds no parseable line.
var ErrNoRecords = errors.New("no records")

// JsonlStorage appends swap records to a JSONL file, one record per line.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Path returns the backing file path.
func (s *JsonlStorage) Path() string {
	return s.path
}

// Append writes the record as a single JSON line. The line and its newline
// go out in one write on an O_APPEND file, so concurrent appenders never
// interleave within a line.
func (s *JsonlStorage) Append(record model.SwapRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal swap record: %w", err)
	}
	line = append(line, '\n')

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}

	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("write swap record: %w", err)
	}
	return file.Close()
}

// ReadLatest returns the first record in the log that parses, along with
// the number of garbled or truncated lines skipped on the way. Blank lines
// are ignored and not counted.
func (s *JsonlStorage) ReadLatest() (model.SwapRecord, int, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return model.SwapRecord{}, 0, ErrNoRecords
		}
		return model.SwapRecord{}, 0, fmt.Errorf("read record log: %w", err)
	}

	skipped := 0
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var record model.SwapRecord
		if err := json.Unmarshal(line, &record); err != nil {
			skipped++
			continue
		}
		return record, skipped, nil
	}

	return model.SwapRecord{}, skipped, ErrNoRecords
}

// Package ledger implements the per-run rollback journal: one JSON object per
// line for every vault a run created, appended and synced as soon as the
// creation succeeds.
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FileName is the ledger's name inside a run directory.
const FileName = "rollback.jsonl"

var (
	ErrClosed = errors.New("ledger is closed")

	validate = validator.New()
)

// Entry records one successful creation.
type Entry struct {
	BatchName string `json:"batch_name" validate:"required"`
	Project   string `json:"project" validate:"required"`
	VaultName string `json:"vault_name" validate:"required"`
	VaultID   string `json:"vault_id,omitempty"`
}

// Identifier is what a delete should target: the id when known, else the name.
func (e Entry) Identifier() string {
	if e.VaultID != "" {
		return e.VaultID
	}
	return e.VaultName
}

// Appender is the write side used by the batch engine.
type Appender interface {
	Append(e Entry) error
}

// Writer holds the ledger file open for the whole run.
type Writer struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	count int
}

// Create opens path for appending, creating it if needed.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rollback ledger: %w", err)
	}
	return &Writer{f: f, path: path}, nil
}

// Append writes e as one line and syncs it to disk before returning.
func (w *Writer) Append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode rollback entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return ErrClosed
	}
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("append rollback entry: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync rollback ledger: %w", err)
	}
	w.count++
	return nil
}

// Count returns how many entries this writer appended.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the ledger file path.
func (w *Writer) Path() string {
	return w.path
}

// Close releases the file handle. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// SkippedLine describes a ledger line that could not be used.
type SkippedLine struct {
	Line int
	Err  error
}

func (s SkippedLine) String() string {
	return fmt.Sprintf("rollback line %d: %v", s.Line, s.Err)
}

// Read loads every valid entry of the ledger at path in file order.
func Read(path string) ([]Entry, []SkippedLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open rollback ledger: %w", err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom parses ledger lines from r. Blank lines are ignored; malformed or
// incomplete lines are reported as skipped and do not stop the read.
func ReadFrom(r io.Reader) ([]Entry, []SkippedLine, error) {
	var (
		entries []Entry
		skipped []SkippedLine
	)

	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return entries, skipped, fmt.Errorf("read rollback ledger: %w", readErr)
		}
		if raw != "" {
			lineNo++
			if s := strings.TrimSpace(raw); s != "" {
				var e Entry
				if err := json.Unmarshal([]byte(s), &e); err != nil {
					skipped = append(skipped, SkippedLine{Line: lineNo, Err: err})
				} else if err := validate.Struct(e); err != nil {
					skipped = append(skipped, SkippedLine{Line: lineNo, Err: err})
				} else {
					entries = append(entries, e)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	return entries, skipped, nil
}

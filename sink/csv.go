package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/use-agent/gmapreviews/models"
)

// CSV writes reviews to a single file. Every call opens, writes, flushes and
// fsyncs the file before returning, so records appended before a crash are
// on disk. Not safe for concurrent use.
type CSV struct {
	path          string
	headerWritten bool
}

// NewCSV returns a sink writing to dir/filename. Nothing touches the disk
// until the first write.
func NewCSV(dir, filename string) *CSV {
	return &CSV{path: filepath.Join(dir, filename)}
}

// Path is the destination file.
func (s *CSV) Path() string { return s.path }

// HeaderWritten reports whether this sink has written the header row.
func (s *CSV) HeaderWritten() bool { return s.headerWritten }

// WriteFull truncates the destination and writes the header and all records.
func (s *CSV) WriteFull(reviews []models.Review) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", s.path, err)
	}
	if err := write(f, true, reviews); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

// Append adds records to the destination, writing the header first when the
// file does not exist yet or this sink has not written one.
func (s *CSV) Append(reviews []models.Review) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	_, statErr := os.Stat(s.path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("sink: stat %s: %w", s.path, statErr)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", s.path, err)
	}
	if err := write(f, !exists || !s.headerWritten, reviews); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

func (s *CSV) ensureDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink: create %s: %w", dir, err)
	}
	return nil
}

// write emits rows, flushes, syncs and closes f.
func write(f *os.File, header bool, reviews []models.Review) (err error) {
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("sink: close %s: %w", f.Name(), cerr)
		}
	}()

	w := csv.NewWriter(f)
	if header {
		if err := w.Write(models.CSVHeader); err != nil {
			return fmt.Errorf("sink: write header: %w", err)
		}
	}
	for _, r := range reviews {
		if err := w.Write(r.CSVRecord()); err != nil {
			return fmt.Errorf("sink: write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sink: sync: %w", err)
	}
	return nil
}

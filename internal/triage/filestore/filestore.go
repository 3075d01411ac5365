// Package filestore persists triage state as JSON files in the reports
// directory: the seen-set as an array of key strings and the output log
// as an array of emitted entries, both rewritten in full.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store implements triage.Store and triage.Sink on top of two JSON files.
type Store struct {
	seenPath   string
	outputPath string
	logger     log.Logger
}

// New returns a Store keeping the seen-set and output log at the given paths.
func New(seenPath, outputPath string, logger log.Logger) *Store {
	return &Store{
		seenPath:   seenPath,
		outputPath: outputPath,
		logger:     logger,
	}
}

// Load reads the persisted seen-set. A missing file is an empty set.
func (s *Store) Load(_ context.Context) ([]string, error) {
	raw, err := os.ReadFile(s.seenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read seen-set %s: %w", s.seenPath, err)
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("parse seen-set %s: %w", s.seenPath, err)
	}
	return keys, nil
}

// Persist rewrites the seen-set file with the full key list.
func (s *Store) Persist(_ context.Context, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	if err := writeJSON(s.seenPath, keys); err != nil {
		return fmt.Errorf("persist seen-set %s: %w", s.seenPath, err)
	}
	return nil
}

// Append reads the existing output log, concatenates the new entries and
// rewrites the file through a temp file and rename, so a failed write
// leaves the previous log intact. An empty batch touches nothing.
func (s *Store) Append(ctx context.Context, entries []*triage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	existing := s.readEntries(ctx)
	combined := append(existing, entries...)
	if err := writeJSON(s.outputPath, combined); err != nil {
		return fmt.Errorf("append output %s: %w", s.outputPath, err)
	}
	return nil
}

// Entries returns the current output log content. Used by tests and the
// occasional ops one-liner; a missing or unreadable log reads as empty.
func (s *Store) Entries(ctx context.Context) []*triage.Entry {
	return s.readEntries(ctx)
}

func (s *Store) readEntries(ctx context.Context) []*triage.Entry {
	raw, err := os.ReadFile(s.outputPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "output log unreadable, treating as empty", "path", s.outputPath, "error", err)
		}
		return nil
	}
	var entries []*triage.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn(ctx, "output log corrupt, treating as empty", "path", s.outputPath, "error", err)
		return nil
	}
	return entries
}

// writeJSON writes v indented to path via a temp file in the same
// directory and a rename, atomic from the reader's perspective.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		return errors.Join(werr, cerr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

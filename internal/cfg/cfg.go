// Package cfg holds the monitor's application configuration.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

// Config carries the reports-directory layout and trigger tuning for the
// monitor. All three state files live inside ReportsDir.
type Config struct {
	ReportsDir string
	FeedFile   string
	OutputFile string
	SeenFile   string
	PolicyFile string
	DebounceMs int
	Ephemeral  bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ReportsDir, "reports-dir", "reports", "directory holding the feed, output and seen-set files (created if absent)")
	fs.StringVar(&c.FeedFile, "feed-file", "suspicious_processes.json", "collector feed file name inside the reports directory")
	fs.StringVar(&c.OutputFile, "output-file", "triaged_processes.json", "output log file name inside the reports directory")
	fs.StringVar(&c.SeenFile, "seen-file", "seen_processes.json", "seen-set file name inside the reports directory")
	fs.StringVar(&c.PolicyFile, "policy-file", "", "optional YAML risk policy file (empty = built-in policy)")
	fs.IntVar(&c.DebounceMs, "debounce-ms", 500, "milliseconds to let feed writes settle before triggering a pass (0..60000)")
	fs.BoolVar(&c.Ephemeral, "ephemeral", false, "keep the seen-set and output log in memory only (dev; state is lost on exit)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	if c.ReportsDir == "" {
		errs = append(errs, errors.New("REPORTS_DIR must not be empty"))
	}

	files := []struct {
		label string
		name  string
	}{
		{"FEED_FILE", c.FeedFile},
		{"OUTPUT_FILE", c.OutputFile},
		{"SEEN_FILE", c.SeenFile},
	}
	for _, f := range files {
		if f.name == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", f.label))
		} else if strings.ContainsAny(f.name, `/\`) {
			errs = append(errs, fmt.Errorf("invalid %s %q (must be a bare file name)", f.label, f.name))
		}
	}

	// the three files share one directory and must not collide
	if c.FeedFile == c.OutputFile || c.FeedFile == c.SeenFile || c.OutputFile == c.SeenFile {
		errs = append(errs, errors.New("FEED_FILE, OUTPUT_FILE and SEEN_FILE must be distinct"))
	}

	if c.DebounceMs < 0 || c.DebounceMs > 60000 {
		errs = append(errs, fmt.Errorf("invalid DEBOUNCE_MS %d (must be 0..60000)", c.DebounceMs))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// FeedPath returns the full path of the collector feed file.
func (c *Config) FeedPath() string { return filepath.Join(c.ReportsDir, c.FeedFile) }

// OutputPath returns the full path of the output log file.
func (c *Config) OutputPath() string { return filepath.Join(c.ReportsDir, c.OutputFile) }

// SeenPath returns the full path of the seen-set file.
func (c *Config) SeenPath() string { return filepath.Join(c.ReportsDir, c.SeenFile) }

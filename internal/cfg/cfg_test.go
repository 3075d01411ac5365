package cfg

import (
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

// validBase returns a Config with all fields set to valid values.
func validBase() Config {
	return Config{
		ReportsDir: "reports",
		FeedFile:   "suspicious_processes.json",
		OutputFile: "triaged_processes.json",
		SeenFile:   "seen_processes.json",
		DebounceMs: 500,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.ReportsDir != "reports" {
		t.Errorf("ReportsDir = %q, want %q", c.ReportsDir, "reports")
	}
	if c.FeedFile != "suspicious_processes.json" {
		t.Errorf("FeedFile = %q, want %q", c.FeedFile, "suspicious_processes.json")
	}
	if c.OutputFile != "triaged_processes.json" {
		t.Errorf("OutputFile = %q, want %q", c.OutputFile, "triaged_processes.json")
	}
	if c.SeenFile != "seen_processes.json" {
		t.Errorf("SeenFile = %q, want %q", c.SeenFile, "seen_processes.json")
	}
	if c.PolicyFile != "" {
		t.Errorf("PolicyFile = %q, want empty", c.PolicyFile)
	}
	if c.DebounceMs != 500 {
		t.Errorf("DebounceMs = %d, want 500", c.DebounceMs)
	}
	if c.Ephemeral {
		t.Error("Ephemeral = true, want false")
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-reports-dir", "/var/lib/sift",
		"-feed-file", "feed.json",
		"-output-file", "out.json",
		"-seen-file", "seen.json",
		"-policy-file", "/etc/sift/policy.yaml",
		"-debounce-ms", "250",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if c.ReportsDir != "/var/lib/sift" {
		t.Errorf("ReportsDir = %q, want %q", c.ReportsDir, "/var/lib/sift")
	}
	if c.DebounceMs != 250 {
		t.Errorf("DebounceMs = %d, want 250", c.DebounceMs)
	}
	if c.PolicyFile != "/etc/sift/policy.yaml" {
		t.Errorf("PolicyFile = %q, want %q", c.PolicyFile, "/etc/sift/policy.yaml")
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	c := validBase()
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"empty reports dir", func(c *Config) { c.ReportsDir = "" }, "REPORTS_DIR"},
		{"empty feed file", func(c *Config) { c.FeedFile = "" }, "FEED_FILE"},
		{"feed file with path", func(c *Config) { c.FeedFile = "sub/feed.json" }, "bare file name"},
		{"output file with backslash", func(c *Config) { c.OutputFile = `sub\out.json` }, "bare file name"},
		{"colliding names", func(c *Config) { c.OutputFile = c.FeedFile }, "distinct"},
		{"negative debounce", func(c *Config) { c.DebounceMs = -1 }, "DEBOUNCE_MS"},
		{"huge debounce", func(c *Config) { c.DebounceMs = 60001 }, "DEBOUNCE_MS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.ReportsDir = "/data/reports"

	if got, want := c.FeedPath(), filepath.Join("/data/reports", "suspicious_processes.json"); got != want {
		t.Errorf("FeedPath = %q, want %q", got, want)
	}
	if got, want := c.OutputPath(), filepath.Join("/data/reports", "triaged_processes.json"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
	if got, want := c.SeenPath(), filepath.Join("/data/reports", "seen_processes.json"); got != want {
		t.Errorf("SeenPath = %q, want %q", got, want)
	}
}

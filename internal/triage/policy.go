package triage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy configures the path heuristics consumed by the risk rules.
// Matching is substring-based against the lowercased identity path.
type Policy struct {
	SuspiciousFolders []string `yaml:"suspicious_folders"`
	TrustedPrefixes   []string `yaml:"trusted_prefixes"`
}

// DefaultPolicy returns the built-in path heuristics.
func DefaultPolicy() Policy {
	return Policy{
		SuspiciousFolders: []string{"appdata", "temp", "downloads"},
		TrustedPrefixes:   []string{`c:\program files`, `c:\windows`},
	}
}

// LoadPolicy reads a YAML policy file. A list left empty in the file
// falls back to the built-in default so a partial file cannot silently
// disable a heuristic.
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}

	def := DefaultPolicy()
	if len(p.SuspiciousFolders) == 0 {
		p.SuspiciousFolders = def.SuspiciousFolders
	}
	if len(p.TrustedPrefixes) == 0 {
		p.TrustedPrefixes = def.TrustedPrefixes
	}
	for i, s := range p.SuspiciousFolders {
		p.SuspiciousFolders[i] = strings.ToLower(s)
	}
	for i, s := range p.TrustedPrefixes {
		p.TrustedPrefixes[i] = strings.ToLower(s)
	}
	return p, nil
}

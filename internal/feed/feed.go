// Package feed decodes the collector's process-observation feed.
//
// The feed is a single JSON array that the external collector rewrites in
// full; it is re-read in full on every triage pass, never incrementally.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Signature is the canonical code-signing state reported by the collector.
// Vendor strings outside the known set are preserved verbatim.
type Signature string

const (
	SigUnknown  Signature = "Unknown"
	SigUnsigned Signature = "Unsigned"
	SigInvalid  Signature = "Invalid"
	SigValid    Signature = "Valid"
)

// UnmarshalJSON canonicalizes the signature at decode time. Absent, empty
// or non-string values (older collector builds emitted numeric states)
// all fold into SigUnknown so downstream rules never see anything but a
// string.
func (s *Signature) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil || v == "" {
		*s = SigUnknown
		return nil
	}
	*s = Signature(v)
	return nil
}

// Observation is one raw process sighting from the feed.
type Observation struct {
	Timestamp           string    `json:"Timestamp"`
	Name                string    `json:"Name"`
	Path                string    `json:"Path"`
	PID                 int       `json:"PID,omitempty"`
	Signature           Signature `json:"Signature"`
	ExternalConnections []string  `json:"ExternalConnections,omitempty"`
	HasExternalConn     bool      `json:"HasExternalConn"`
}

// ErrNotFound reports that the feed file does not exist yet. Recoverable:
// the pass is skipped and the loop waits for the next trigger.
var ErrNotFound = errors.New("feed file not found")

// DecodeError reports malformed feed content. Recoverable, same policy as
// ErrNotFound.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode feed %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reader reads the feed file in full on every call.
type Reader struct {
	path string
}

// NewReader returns a Reader for the feed at path.
func NewReader(path string) *Reader { return &Reader{path: path} }

// Path returns the feed file path the Reader was built with.
func (r *Reader) Path() string { return r.path }

// Read decodes the current feed content into an ordered record sequence.
// It returns ErrNotFound if the file is absent and a *DecodeError on
// malformed content. There are no partial results.
func (r *Reader) Read() ([]Observation, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}
		return nil, fmt.Errorf("read feed %s: %w", r.path, err)
	}
	return Decode(r.path, raw)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses raw feed bytes. The collector writes UTF-8 with a BOM on
// Windows, so a leading BOM is stripped before decoding.
func Decode(path string, raw []byte) ([]Observation, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	var records []Observation
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	for i := range records {
		// key absent entirely, UnmarshalJSON never ran
		if records[i].Signature == "" {
			records[i].Signature = SigUnknown
		}
	}
	return records, nil
}

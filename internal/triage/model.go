package triage

import "github.com/linnemanlabs/sift/internal/feed"

// Risk is the label assigned to an identity when it is first emitted.
// It is never recomputed afterward.
type Risk string

const (
	RiskHigh Risk = "HIGH"
	RiskMid  Risk = "MID"
	RiskLow  Risk = "LOW"
)

// Identity is a process consolidated by Name+Path across all of its
// sightings within a single pass.
type Identity struct {
	Name                string
	Path                string
	Timestamp           string
	Signature           feed.Signature
	PIDs                []int
	ExternalConnections []string
	HasExternalConn     bool
}

// Key returns the dedup key for the identity. The raw Name and Path are
// used as provided by the collector, so path casing variance yields
// distinct keys even though the risk rules compare case-insensitively.
func (id *Identity) Key() string { return Key(id.Name, id.Path) }

// Key builds the seen-set key for a Name and Path pair.
func Key(name, path string) string { return name + "|" + path }

// Entry is an identity annotated with its risk label, as appended to the
// output log. Field names match what the log's existing readers expect.
type Entry struct {
	Timestamp           string         `json:"Timestamp"`
	Name                string         `json:"Name"`
	Path                string         `json:"Path"`
	Signature           feed.Signature `json:"Signature"`
	PIDs                []int          `json:"PIDs"`
	ExternalConnections []string       `json:"ExternalConnections"`
	HasExternalConn     bool           `json:"HasExternalConn"`
	Risk                Risk           `json:"Risk"`
	PIDCount            int            `json:"PID_Count"`
}

package triage

import "context"

// Store persists the seen-set: identity keys already emitted, across all
// passes for the lifetime of the output log. The set only grows; there is
// no removal operation.
type Store interface {
	// Load returns the persisted keys. A missing backing file yields an
	// empty set and no error.
	Load(ctx context.Context) ([]string, error)

	// Persist durably rewrites the backing storage with the full set.
	Persist(ctx context.Context, keys []string) error
}

// Sink is the append-only output log of triaged entries.
type Sink interface {
	// Append writes entries after the existing log content. An empty
	// slice must leave the log untouched. On failure the prior durable
	// state is left intact.
	Append(ctx context.Context, entries []*Entry) error
}

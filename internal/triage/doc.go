// Package triage provides the business boundary for sift's process triage
// pipeline. It defines the Consolidator (raw observations to canonical
// identities), the Engine (ordered risk rules), the Service (the pass:
// parse, consolidate, dedup, score, emit, persist), the Store and Sink
// interfaces (persistence), and the domain models.
package triage

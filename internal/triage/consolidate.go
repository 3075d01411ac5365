package triage

import (
	"slices"

	"github.com/linnemanlabs/sift/internal/feed"
)

// Consolidate groups raw observations into canonical identities,
// preserving first-seen key order. The first sighting of a key seeds
// Timestamp, Signature and HasExternalConn; later sightings only
// contribute unseen PIDs and unseen non-empty connection descriptors.
// Keeping the flag and signature sticky to the first sighting avoids
// flapping when the collector reports partial data for later sightings.
func Consolidate(records []feed.Observation) []*Identity {
	byKey := make(map[string]*Identity)
	var order []*Identity

	for _, rec := range records {
		k := Key(rec.Name, rec.Path)
		id, ok := byKey[k]
		if !ok {
			id = &Identity{
				Name:      rec.Name,
				Path:      rec.Path,
				Timestamp: rec.Timestamp,
				Signature: rec.Signature,
				// non-nil so the output log serializes empty collections
				// as arrays, the shape existing readers expect
				PIDs:                []int{},
				ExternalConnections: []string{},
				HasExternalConn:     rec.HasExternalConn,
			}
			byKey[k] = id
			order = append(order, id)
		}
		id.merge(rec)
	}
	return order
}

// merge folds one sighting's PID and connection descriptors into the
// identity, skipping absent PIDs, empty descriptors and duplicates.
func (id *Identity) merge(rec feed.Observation) {
	if rec.PID > 0 && !slices.Contains(id.PIDs, rec.PID) {
		id.PIDs = append(id.PIDs, rec.PID)
	}
	for _, conn := range rec.ExternalConnections {
		if conn != "" && !slices.Contains(id.ExternalConnections, conn) {
			id.ExternalConnections = append(id.ExternalConnections, conn)
		}
	}
}

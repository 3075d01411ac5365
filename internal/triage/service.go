package triage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/feed"
)

// Pass outcomes recorded in metrics and pass results.
const (
	OutcomeOK          = "ok"
	OutcomeFeedMissing = "feed_missing"
	OutcomeFeedInvalid = "feed_invalid"
	OutcomeSinkError   = "sink_error"
)

// Source yields the full current feed content. *feed.Reader satisfies it.
type Source interface {
	Path() string
	Read() ([]feed.Observation, error)
}

// Notifier receives the entries emitted by a pass, for human-facing output.
type Notifier interface {
	EntriesEmitted(ctx context.Context, entries []*Entry)
}

// PassResult summarizes one triage pass.
type PassResult struct {
	PassID     string
	Outcome    string
	Records    int
	Identities int
	Emitted    int
}

// Service owns the triage pass: parse, consolidate, dedup against the
// seen-set, score, emit, persist. It is not safe for concurrent use; the
// trigger loop serializes passes and is the sole owner of the seen-set.
type Service struct {
	source   Source
	engine   *Engine
	store    Store
	sink     Sink
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	seen map[string]struct{}
}

// NewService creates a triage service. notifier may be nil.
func NewService(source Source, engine *Engine, store Store, sink Sink, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	return &Service{
		source:   source,
		engine:   engine,
		store:    store,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("sift/triage"),
		seen:     make(map[string]struct{}),
	}
}

// LoadSeen primes the in-memory seen-set from the store and returns its
// size. A read failure degrades to an empty set: dedup history is lost
// for this in-memory view only, the backing file is left untouched.
func (s *Service) LoadSeen(ctx context.Context) int {
	keys, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "seen-set load failed, starting from empty set")
		s.metrics.PersistFailures.WithLabelValues("seen_load").Inc()
		keys = nil
	}
	for _, k := range keys {
		s.seen[k] = struct{}{}
	}
	s.metrics.SeenSetSize.Set(float64(len(s.seen)))
	return len(s.seen)
}

// RunPass executes one full triage pass. Feed and persistence failures
// are recoverable and absorbed here: the pass is skipped or degraded,
// logged, counted, and the loop keeps waiting for the next trigger.
func (s *Service) RunPass(ctx context.Context) *PassResult {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "triage.pass")
	defer span.End()

	res := &PassResult{PassID: ulid.Make().String()}
	span.SetAttributes(attribute.String("pass_id", res.PassID))
	L := s.logger.With("pass_id", res.PassID)

	defer func() {
		s.metrics.PassesTotal.WithLabelValues(res.Outcome).Inc()
		s.metrics.PassDuration.Observe(time.Since(start).Seconds())
	}()

	records, err := s.source.Read()
	if err != nil {
		var de *feed.DecodeError
		switch {
		case errors.Is(err, feed.ErrNotFound):
			res.Outcome = OutcomeFeedMissing
			L.Warn(ctx, "feed file missing, skipping pass", "path", s.source.Path())
		case errors.As(err, &de):
			res.Outcome = OutcomeFeedInvalid
			L.Error(ctx, err, "feed decode failed, skipping pass")
		default:
			res.Outcome = OutcomeFeedInvalid
			L.Error(ctx, err, "feed read failed, skipping pass")
		}
		return res
	}
	res.Records = len(records)
	s.metrics.RecordsParsed.Observe(float64(len(records)))

	identities := Consolidate(records)
	res.Identities = len(identities)
	s.metrics.IdentitiesPerPass.Observe(float64(len(identities)))

	var entries []*Entry
	var keys []string
	for _, id := range identities {
		k := id.Key()
		if _, ok := s.seen[k]; ok {
			continue
		}
		entries = append(entries, &Entry{
			Timestamp:           id.Timestamp,
			Name:                id.Name,
			Path:                id.Path,
			Signature:           id.Signature,
			PIDs:                id.PIDs,
			ExternalConnections: id.ExternalConnections,
			HasExternalConn:     id.HasExternalConn,
			Risk:                s.engine.Assess(id),
			PIDCount:            len(id.PIDs),
		})
		keys = append(keys, k)
	}

	if len(entries) > 0 {
		if err := s.sink.Append(ctx, entries); err != nil {
			// The keys stay out of the seen-set so the entries are
			// re-emitted on a later pass; re-emission beats silent loss.
			L.Error(ctx, err, "output append failed", "entries", len(entries))
			s.metrics.PersistFailures.WithLabelValues("output").Inc()
			res.Outcome = OutcomeSinkError
			s.persistSeen(ctx, L)
			return res
		}
		for i, e := range entries {
			s.seen[keys[i]] = struct{}{}
			s.metrics.EntriesEmitted.WithLabelValues(string(e.Risk)).Inc()
		}
		s.metrics.SeenSetSize.Set(float64(len(s.seen)))
		res.Emitted = len(entries)
		if s.notifier != nil {
			s.notifier.EntriesEmitted(ctx, entries)
		}
	}

	// The seen-set is rewritten every pass, always after the output
	// append. A crash between the two writes can only cause a duplicate
	// emission, never an entry marked seen but missing from the output.
	s.persistSeen(ctx, L)

	res.Outcome = OutcomeOK
	L.Info(ctx, "pass complete",
		"records", res.Records,
		"identities", res.Identities,
		"emitted", res.Emitted,
		"seen", len(s.seen),
		"duration", time.Since(start).Seconds(),
	)
	return res
}

func (s *Service) persistSeen(ctx context.Context, L log.Logger) {
	keys := make([]string, 0, len(s.seen))
	for k := range s.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := s.store.Persist(ctx, keys); err != nil {
		// Accepted risk: if this keeps failing, a restart re-emits the
		// affected identities as duplicates.
		L.Error(ctx, err, "seen-set persist failed", "keys", len(keys))
		s.metrics.PersistFailures.WithLabelValues("seen_persist").Inc()
	}
}

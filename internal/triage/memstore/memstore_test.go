package memstore

import (
	"context"
	"reflect"
	"testing"

	"github.com/linnemanlabs/sift/internal/triage"
)

func TestStore_LoadEmpty(t *testing.T) {
	t.Parallel()

	s := New()
	keys, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys = %v, want empty", keys)
	}
}

func TestStore_PersistAndLoad(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	want := []string{`a.exe|C:\a`, `b.exe|C:\b`}
	if err := s.Persist(ctx, want); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestStore_AppendAndEntries(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Append(ctx, []*triage.Entry{{Name: "a.exe", Risk: triage.RiskLow}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, []*triage.Entry{{Name: "b.exe", Risk: triage.RiskHigh}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := s.Entries()
	if len(got) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(got))
	}
	if got[0].Name != "a.exe" || got[1].Name != "b.exe" {
		t.Errorf("entries = %+v, want append order preserved", got)
	}

	// returned entries are copies
	got[0].Name = "mutated"
	if s.Entries()[0].Name != "a.exe" {
		t.Error("Entries must return copies")
	}
}

func TestStore_AppendEmptyIsNoOp(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Append(context.Background(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(s.Entries()) != 0 {
		t.Error("expected no entries after empty append")
	}
}

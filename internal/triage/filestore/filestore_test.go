package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/triage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "seen.json"), filepath.Join(dir, "out.json"), log.Nop())
	return s, dir
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	keys, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys = %v, want empty", keys)
	}
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
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

func TestPersist_EmptySetWritesEmptyArray(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	if err := s.Persist(context.Background(), nil); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "seen.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, "seen.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt seen-set")
	}
}

func TestAppend_CreatesAndAppends(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	first := []*triage.Entry{{Name: "a.exe", Path: `C:\a`, Risk: triage.RiskLow}}
	if err := s.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second := []*triage.Entry{{Name: "b.exe", Path: `C:\b`, Risk: triage.RiskHigh}}
	if err := s.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := s.Entries(ctx)
	if len(got) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(got))
	}
	// append-only: the earlier entry is untouched
	if got[0].Name != "a.exe" || got[0].Risk != triage.RiskLow {
		t.Errorf("entries[0] = %+v, want the first appended entry unchanged", got[0])
	}
	if got[1].Name != "b.exe" {
		t.Errorf("entries[1].Name = %q, want %q", got[1].Name, "b.exe")
	}
}

func TestAppend_EmptyIsNoOp(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	if err := s.Append(context.Background(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.json")); !os.IsNotExist(err) {
		t.Error("empty append must not create the output file")
	}
}

func TestAppend_CorruptLogDegradesToEmpty(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "out.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries := []*triage.Entry{{Name: "a.exe", Path: `C:\a`}}
	if err := s.Append(ctx, entries); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got := s.Entries(ctx)
	if len(got) != 1 || got[0].Name != "a.exe" {
		t.Errorf("entries = %+v, want just the new entry", got)
	}
}

func TestAppend_EntryWireFormat(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	err := s.Append(context.Background(), []*triage.Entry{{
		Timestamp:           "t1",
		Name:                "a.exe",
		Path:                `C:\a`,
		Signature:           "Unknown",
		PIDs:                []int{10},
		ExternalConnections: []string{"1.2.3.4:443"},
		HasExternalConn:     true,
		Risk:                triage.RiskHigh,
		PIDCount:            1,
	}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"Timestamp", "Name", "Path", "Signature", "PIDs", "ExternalConnections", "HasExternalConn", "Risk", "PID_Count"} {
		if _, ok := generic[0][field]; !ok {
			t.Errorf("output entry missing field %q", field)
		}
	}
}

package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davidrioja/reelforge/internal/core"
)

func newJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenes.json")
	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	return s, path
}

func TestJSONStoreMutationSemantics(t *testing.T) {
	s, _ := newJSONStore(t)
	ctx := context.Background()

	createScene(t, s, "s1", "a", 30)
	createScene(t, s, "s2", "b", 45)

	snap, err := s.Apply(ctx, &core.SceneMutation{
		ProjectID: projectID,
		SceneID:   "s1",
		Operation: core.OpDelete,
	})
	if err != nil {
		t.Fatalf("Apply(delete) error = %v", err)
	}
	if snap.Version != 3 {
		t.Errorf("Version = %d, want 3", snap.Version)
	}
	if len(snap.Scenes) != 1 || snap.Scenes[0].ID != "s2" || snap.Scenes[0].Order != 0 {
		t.Errorf("delete left scenes %+v", snap.Scenes)
	}

	_, err = s.Apply(ctx, &core.SceneMutation{
		ProjectID: projectID,
		SceneID:   "ghost",
		Operation: core.OpUpdate,
		NewCode:   "x",
	})
	if !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("error category = %s, want %s", core.GetCategory(err), core.ErrCatNotFound)
	}
}

func TestJSONStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.json")
	ctx := context.Background()

	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	createScene(t, s, "s1", "persisted code", 75)
	if err := s.SetStatus(ctx, projectID, "s1", core.SceneStatusValid, ""); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := s.Append(ctx, &core.Message{ID: "m1", ProjectID: projectID, Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	snap, err := reopened.Snapshot(ctx, projectID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Scenes) != 1 || snap.Scenes[0].Code != "persisted code" {
		t.Fatalf("reopened snapshot lost the scene: %+v", snap.Scenes)
	}
	if snap.Scenes[0].Status != core.SceneStatusValid {
		t.Errorf("Status = %s, want valid", snap.Scenes[0].Status)
	}
	msgs, err := reopened.Recent(ctx, projectID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("reopened history = %+v", msgs)
	}
}

func TestJSONStoreRejectsCorruptedFile(t *testing.T) {
	s, path := newJSONStore(t)
	createScene(t, s, "s1", "code", 30)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	tampered := strings.Replace(string(data), "code", "EDIT", 1)
	if tampered == string(data) {
		t.Fatal("tampering had no effect")
	}
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := NewJSONStore(path); err == nil {
		t.Error("NewJSONStore() accepted a file failing its checksum")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("sqlite", filepath.Join(dir, "state"))
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) returned %T", s)
	}
	if err := Close(s); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	j, err := Open("json", filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("Open(json) error = %v", err)
	}
	if _, ok := j.(*JSONStore); !ok {
		t.Errorf("Open(json) returned %T", j)
	}

	if _, err := Open("etcd", "x"); err == nil {
		t.Error("Open() accepted an unknown backend")
	}
}

// Package testutil provides in-memory fakes for the engine's ports.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
)

// MemoryStore implements core.SceneStore and core.HistoryStore in memory.
// Apply is atomic under one mutex so readers never observe a partial
// mutation, matching the store contract.
type MemoryStore struct {
	mu       sync.Mutex
	scenes   map[core.ProjectID][]*core.SceneEntity
	versions map[core.ProjectID]int64
	messages map[core.ProjectID][]*core.Message
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenes:   make(map[core.ProjectID][]*core.SceneEntity),
		versions: make(map[core.ProjectID]int64),
		messages: make(map[core.ProjectID][]*core.Message),
	}
}

// Seed inserts scenes directly, bypassing mutation validation.
func (m *MemoryStore) Seed(projectID core.ProjectID, scenes ...*core.SceneEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range scenes {
		s.ProjectID = projectID
		s.Order = i
		m.scenes[projectID] = append(m.scenes[projectID], s)
	}
	m.versions[projectID]++
}

// Snapshot returns a deep-copied versioned snapshot.
func (m *MemoryStore) Snapshot(_ context.Context, projectID core.ProjectID) (*core.SceneSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(projectID), nil
}

func (m *MemoryStore) snapshotLocked(projectID core.ProjectID) *core.SceneSnapshot {
	snap := &core.SceneSnapshot{
		ProjectID: projectID,
		Version:   m.versions[projectID],
		TakenAt:   time.Now(),
	}
	for _, s := range m.scenes[projectID] {
		snap.Scenes = append(snap.Scenes, s.Clone())
	}
	return snap
}

// Apply performs one mutation.
func (m *MemoryStore) Apply(_ context.Context, mut *core.SceneMutation) (*core.SceneSnapshot, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.scenes[mut.ProjectID]
	switch mut.Operation {
	case core.OpCreate:
		scene := core.NewScene(mut.SceneID, mut.ProjectID, mut.NewCode)
		scene.Order = len(list)
		scene.Duration = mut.NewDuration
		scene.Meta = core.SceneMeta{Name: mut.Name, Tool: mut.Tool}
		m.scenes[mut.ProjectID] = append(list, scene)

	case core.OpUpdate:
		found := false
		for _, s := range list {
			if s.ID == mut.SceneID {
				s.Code = mut.NewCode
				if !mut.NewDuration.IsZero() {
					s.Duration = mut.NewDuration
				}
				if mut.Name != "" {
					s.Meta.Name = mut.Name
				}
				if mut.Tool != "" {
					s.Meta.Tool = mut.Tool
				}
				s.ResetPending()
				found = true
				break
			}
		}
		if !found {
			return nil, core.ErrNotFound("scene", string(mut.SceneID))
		}

	case core.OpDelete:
		kept := list[:0]
		found := false
		for _, s := range list {
			if s.ID == mut.SceneID {
				found = true
				continue
			}
			kept = append(kept, s)
		}
		if !found {
			return nil, core.ErrNotFound("scene", string(mut.SceneID))
		}
		for i, s := range kept {
			s.Order = i
		}
		m.scenes[mut.ProjectID] = kept
	}

	m.versions[mut.ProjectID]++
	return m.snapshotLocked(mut.ProjectID), nil
}

// SetStatus records a compile outcome.
func (m *MemoryStore) SetStatus(_ context.Context, projectID core.ProjectID, sceneID core.SceneID, status core.SceneStatus, compileErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.scenes[projectID] {
		if s.ID == sceneID {
			if err := s.RecordCompileOutcome(status, compileErr); err != nil {
				return core.ErrState("BAD_STATUS_TRANSITION", err.Error())
			}
			return nil
		}
	}
	return core.ErrNotFound("scene", string(sceneID))
}

// Reorder replaces the scene ordering.
func (m *MemoryStore) Reorder(_ context.Context, projectID core.ProjectID, order []core.SceneID) (*core.SceneSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.scenes[projectID]
	if len(order) != len(list) {
		return nil, core.ErrValidation("BAD_ORDER", "reorder must name every scene exactly once")
	}

	byID := make(map[core.SceneID]*core.SceneEntity, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}

	reordered := make([]*core.SceneEntity, 0, len(order))
	for i, id := range order {
		s, ok := byID[id]
		if !ok {
			return nil, core.ErrNotFound("scene", string(id))
		}
		s.Order = i
		reordered = append(reordered, s)
		delete(byID, id)
	}

	m.scenes[projectID] = reordered
	m.versions[projectID]++
	return m.snapshotLocked(projectID), nil
}

// Append adds a conversation message.
func (m *MemoryStore) Append(_ context.Context, msg *core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ProjectID] = append(m.messages[msg.ProjectID], msg)
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (m *MemoryStore) Recent(_ context.Context, projectID core.ProjectID, limit int) ([]*core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[projectID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

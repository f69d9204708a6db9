package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
)

// storeEnvelope wraps the persisted document with integrity metadata.
type storeEnvelope struct {
	Version   int                        `json:"version"`
	Checksum  string                     `json:"checksum"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Projects  map[core.ProjectID]project `json:"projects"`
}

type project struct {
	Version  int64               `json:"version"`
	Scenes   []*core.SceneEntity `json:"scenes"`
	Messages []*core.Message     `json:"messages"`
}

const envelopeVersion = 1

// JSONStore implements core.SceneStore and core.HistoryStore with a single
// JSON file. The document is held in memory and rewritten atomically after
// every mutation, so a crash mid-write never leaves a torn file.
type JSONStore struct {
	path     string
	mu       sync.Mutex
	projects map[core.ProjectID]*project
}

// NewJSONStore loads (or creates) the store file at path.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:     path,
		projects: make(map[core.ProjectID]*project),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading store file: %w", err)
	}

	var env storeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parsing store file: %w", err)
	}
	if env.Checksum != "" {
		if sum := projectsChecksum(env.Projects); sum != env.Checksum {
			return fmt.Errorf("store file %s is corrupted (checksum mismatch)", s.path)
		}
	}
	for id, p := range env.Projects {
		cp := p
		s.projects[id] = &cp
	}
	return nil
}

func (s *JSONStore) save() error {
	env := storeEnvelope{
		Version:   envelopeVersion,
		UpdatedAt: time.Now(),
		Projects:  make(map[core.ProjectID]project, len(s.projects)),
	}
	for id, p := range s.projects {
		env.Projects[id] = *p
	}
	env.Checksum = projectsChecksum(env.Projects)

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := atomicWriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}

func projectsChecksum(projects map[core.ProjectID]project) string {
	data, err := json.Marshal(projects)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *JSONStore) projectLocked(id core.ProjectID) *project {
	p, ok := s.projects[id]
	if !ok {
		p = &project{}
		s.projects[id] = p
	}
	return p
}

func (s *JSONStore) snapshotLocked(projectID core.ProjectID) *core.SceneSnapshot {
	snap := &core.SceneSnapshot{
		ProjectID: projectID,
		TakenAt:   time.Now(),
	}
	p, ok := s.projects[projectID]
	if !ok {
		return snap
	}
	snap.Version = p.Version
	for _, sc := range p.Scenes {
		snap.Scenes = append(snap.Scenes, sc.Clone())
	}
	return snap
}

// Snapshot returns a versioned snapshot of a project's ordered scenes.
func (s *JSONStore) Snapshot(_ context.Context, projectID core.ProjectID) (*core.SceneSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(projectID), nil
}

// Apply performs one mutation and persists the whole document.
func (s *JSONStore) Apply(_ context.Context, mut *core.SceneMutation) (*core.SceneSnapshot, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.projectLocked(mut.ProjectID)
	switch mut.Operation {
	case core.OpCreate:
		scene := core.NewScene(mut.SceneID, mut.ProjectID, mut.NewCode)
		scene.Order = len(p.Scenes)
		if !mut.NewDuration.IsZero() {
			scene.Duration = mut.NewDuration
		}
		scene.Meta = core.SceneMeta{Name: mut.Name, Tool: mut.Tool}
		p.Scenes = append(p.Scenes, scene)

	case core.OpUpdate:
		scene, ok := findScene(p.Scenes, mut.SceneID)
		if !ok {
			return nil, core.ErrNotFound("scene", string(mut.SceneID))
		}
		scene.Code = mut.NewCode
		if !mut.NewDuration.IsZero() {
			scene.Duration = mut.NewDuration
		}
		if mut.Name != "" {
			scene.Meta.Name = mut.Name
		}
		if mut.Tool != "" {
			scene.Meta.Tool = mut.Tool
		}
		scene.ResetPending()

	case core.OpDelete:
		kept := p.Scenes[:0]
		found := false
		for _, sc := range p.Scenes {
			if sc.ID == mut.SceneID {
				found = true
				continue
			}
			kept = append(kept, sc)
		}
		if !found {
			return nil, core.ErrNotFound("scene", string(mut.SceneID))
		}
		for i, sc := range kept {
			sc.Order = i
		}
		p.Scenes = kept
	}

	p.Version++
	if err := s.save(); err != nil {
		return nil, err
	}
	return s.snapshotLocked(mut.ProjectID), nil
}

// SetStatus records the compile outcome for a scene.
func (s *JSONStore) SetStatus(_ context.Context, projectID core.ProjectID, sceneID core.SceneID, status core.SceneStatus, compileErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return core.ErrNotFound("scene", string(sceneID))
	}
	scene, ok := findScene(p.Scenes, sceneID)
	if !ok {
		return core.ErrNotFound("scene", string(sceneID))
	}
	if err := scene.RecordCompileOutcome(status, compileErr); err != nil {
		return core.ErrState("BAD_STATUS_TRANSITION", err.Error())
	}
	return s.save()
}

// Reorder replaces the scene ordering with the given id sequence.
func (s *JSONStore) Reorder(_ context.Context, projectID core.ProjectID, order []core.SceneID) (*core.SceneSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.projectLocked(projectID)
	if len(order) != len(p.Scenes) {
		return nil, core.ErrValidation("BAD_ORDER", "reorder must name every scene exactly once")
	}

	byID := make(map[core.SceneID]*core.SceneEntity, len(p.Scenes))
	for _, sc := range p.Scenes {
		byID[sc.ID] = sc
	}
	reordered := make([]*core.SceneEntity, 0, len(order))
	for i, id := range order {
		sc, ok := byID[id]
		if !ok {
			return nil, core.ErrNotFound("scene", string(id))
		}
		sc.Order = i
		reordered = append(reordered, sc)
		delete(byID, id)
	}
	p.Scenes = reordered

	p.Version++
	if err := s.save(); err != nil {
		return nil, err
	}
	return s.snapshotLocked(projectID), nil
}

// Append adds a conversation message.
func (s *JSONStore) Append(_ context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	p := s.projectLocked(m.ProjectID)
	p.Messages = append(p.Messages, &m)
	return s.save()
}

// Recent returns up to limit most recent messages, oldest first.
func (s *JSONStore) Recent(_ context.Context, projectID core.ProjectID, limit int) ([]*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, nil
	}
	msgs := p.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func findScene(scenes []*core.SceneEntity, id core.SceneID) (*core.SceneEntity, bool) {
	for _, sc := range scenes {
		if sc.ID == id {
			return sc, true
		}
	}
	return nil, false
}

package compile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
)

// sceneState is the per-scene compile state machine. Broken is terminal
// until a new edit resets the scene to pending upstream.
type sceneState string

const (
	statePending   sceneState = "pending"
	stateCompiling sceneState = "compiling"
	stateValid     sceneState = "valid"
	stateBroken    sceneState = "broken"
)

type cacheEntry struct {
	state    sceneState
	hash     core.CodeHash
	project  core.ProjectID
	artifact core.CompiledArtifact
}

// reportKey dedupes repair signals: one SceneBroken event per distinct
// failure occurrence (scene + code revision), not one per re-render.
type reportKey struct {
	scene core.SceneID
	hash  core.CodeHash
}

// Compiler compiles scenes independently and keeps the keyed artifact
// index the timeline fold reads from. Compilations of different scenes
// share no mutable state beyond the index they publish results into.
type Compiler struct {
	store   core.SceneStore
	bus     *events.Bus
	logger  *logging.Logger
	workers int

	mu       sync.Mutex
	cache    map[core.SceneID]cacheEntry
	reported map[reportKey]bool
}

// Option configures the compiler.
type Option func(*Compiler)

// WithWorkers bounds how many scenes compile concurrently.
func WithWorkers(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCompiler creates a compiler publishing results on the given bus.
func NewCompiler(store core.SceneStore, bus *events.Bus, logger *logging.Logger, opts ...Option) *Compiler {
	c := &Compiler{
		store:    store,
		bus:      bus,
		logger:   logger,
		workers:  4,
		cache:    make(map[core.SceneID]cacheEntry),
		reported: make(map[reportKey]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileProject compiles every scene in the snapshot that needs it and
// returns the composed timeline plus per-scene results. Valid artifacts
// whose code hash is unchanged are reused without recompiling; a scene
// going broken leaves every other scene's cached artifact untouched.
func (c *Compiler) CompileProject(ctx context.Context, snap *core.SceneSnapshot) (*core.Timeline, []core.CompilationResult, error) {
	c.pruneDeleted(snap)

	results := make([]core.CompilationResult, len(snap.Scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, scene := range snap.Scenes {
		i, scene := i, scene
		if artifact, ok := c.cached(scene); ok {
			results[i] = core.CompilationResult{SceneID: scene.ID, Success: !artifact.Placeholder,
				Artifact: &artifact, Message: artifact.Error}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.compileScene(gctx, scene)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	timeline := ComposeTimeline(snap, c.artifactIndex())
	c.bus.Publish(events.NewTimelineRecomposedEvent(
		string(snap.ProjectID), snap.Version, timeline.TotalFrames, timeline.BrokenCount()))

	return timeline, results, nil
}

// compileScene runs the isolated compile for one scene and records the
// outcome. Failures are captured in the result, never returned as errors:
// one broken scene must not cancel its siblings.
func (c *Compiler) compileScene(ctx context.Context, scene *core.SceneEntity) core.CompilationResult {
	hash := core.HashCode(scene.Code)
	c.setState(scene, stateCompiling, hash)

	log := c.logger.WithProject(string(scene.ProjectID)).WithScene(string(scene.ID))
	log.Debug("compiling scene", "hash", string(hash)[:12])

	result := Validate(scene.ID, scene.Code)

	if !result.Success {
		artifact := Placeholder(scene, result.Message)
		result.Artifact = &artifact
		c.storeArtifact(scene, stateBroken, hash, artifact)

		if err := c.store.SetStatus(ctx, scene.ProjectID, scene.ID, core.SceneStatusBroken, result.Message); err != nil {
			log.Warn("recording broken status failed", "error", err)
		}

		// Emit the repair signal exactly once per scene+revision, at the
		// moment the placeholder is produced.
		if c.firstReport(scene.ID, hash) {
			c.bus.PublishPriority(events.NewSceneBrokenEvent(
				string(scene.ProjectID), string(scene.ID), artifact.Name,
				result.Message, scene.Code, string(hash)))
		}

		log.Warn("scene broken", "error", result.Message)
		return result
	}

	artifact := core.CompiledArtifact{
		SceneID:    scene.ID,
		Name:       scene.Meta.Name,
		Hash:       hash,
		Duration:   scene.Duration,
		Module:     scene.Code,
		CompiledAt: time.Now(),
	}
	result.Artifact = &artifact
	c.storeArtifact(scene, stateValid, hash, artifact)

	if err := c.store.SetStatus(ctx, scene.ProjectID, scene.ID, core.SceneStatusValid, ""); err != nil {
		log.Warn("recording valid status failed", "error", err)
	}

	c.bus.Publish(events.NewSceneCompiledEvent(
		string(scene.ProjectID), string(scene.ID), string(hash), scene.Duration.Frames))

	return result
}

// cached returns the scene's artifact when neither its code hash nor its
// duration changed. Trims alter duration without touching code, so hash
// alone does not prove the artifact current.
func (c *Compiler) cached(scene *core.SceneEntity) (core.CompiledArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[scene.ID]
	if !ok || entry.state == stateCompiling || entry.state == statePending {
		return core.CompiledArtifact{}, false
	}
	if entry.hash != core.HashCode(scene.Code) || entry.artifact.Duration != scene.Duration {
		return core.CompiledArtifact{}, false
	}
	return entry.artifact, true
}

// Evict drops a scene's cached artifact, forcing the next compile to
// rerun. Repair-signal dedupe state stays: re-rendering the same broken
// revision is not a new failure occurrence.
func (c *Compiler) Evict(sceneID core.SceneID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, sceneID)
}

// pruneDeleted drops entries for scenes a project no longer contains,
// dedupe state included: a scene id recreated after deletion starts a
// fresh failure history. Deleted scenes therefore do not pin artifacts
// for the rest of the process lifetime.
func (c *Compiler) pruneDeleted(snap *core.SceneSnapshot) {
	live := make(map[core.SceneID]bool, len(snap.Scenes))
	for _, s := range snap.Scenes {
		live[s.ID] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.cache {
		if entry.project == snap.ProjectID && !live[id] {
			delete(c.cache, id)
			for key := range c.reported {
				if key.scene == id {
					delete(c.reported, key)
				}
			}
		}
	}
}

// SceneState reports the compile state machine position for a scene.
func (c *Compiler) SceneState(sceneID core.SceneID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[sceneID]
	if !ok {
		return string(statePending)
	}
	return string(entry.state)
}

func (c *Compiler) setState(scene *core.SceneEntity, st sceneState, hash core.CodeHash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.cache[scene.ID]
	entry.state = st
	entry.hash = hash
	entry.project = scene.ProjectID
	c.cache[scene.ID] = entry
}

func (c *Compiler) storeArtifact(scene *core.SceneEntity, st sceneState, hash core.CodeHash, artifact core.CompiledArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[scene.ID] = cacheEntry{state: st, hash: hash, project: scene.ProjectID, artifact: artifact}
}

func (c *Compiler) firstReport(id core.SceneID, hash core.CodeHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := reportKey{scene: id, hash: hash}
	if c.reported[key] {
		return false
	}
	c.reported[key] = true
	return true
}

// artifactIndex snapshots the keyed artifact map for the timeline fold.
func (c *Compiler) artifactIndex() map[core.SceneID]core.CompiledArtifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[core.SceneID]core.CompiledArtifact, len(c.cache))
	for id, entry := range c.cache {
		if entry.state == stateValid || entry.state == stateBroken {
			index[id] = entry.artifact
		}
	}
	return index
}

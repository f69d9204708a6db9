package compile

import (
	"time"

	"github.com/davidrioja/reelforge/internal/core"
)

// ComposeTimeline folds the ordered scene list into a playable timeline.
// The fold is pure: it reads the artifact index, substitutes a placeholder
// for any scene whose artifact is missing or broken, and never
// short-circuits on a failed entry. Total duration is always the sum of
// every scene's duration.
func ComposeTimeline(snap *core.SceneSnapshot, artifacts map[core.SceneID]core.CompiledArtifact) *core.Timeline {
	timeline := &core.Timeline{
		ProjectID:  snap.ProjectID,
		Version:    snap.Version,
		Entries:    make([]core.CompiledArtifact, 0, len(snap.Scenes)),
		FPS:        core.DefaultFPS,
		ComposedAt: time.Now(),
	}

	for _, scene := range snap.Scenes {
		artifact, ok := artifacts[scene.ID]
		if !ok {
			artifact = Placeholder(scene, "scene has not been compiled")
		}
		timeline.Entries = append(timeline.Entries, artifact)
		timeline.TotalFrames += artifact.Duration.Frames
		if scene.Duration.FPS > 0 {
			timeline.FPS = scene.Duration.FPS
		}
	}

	return timeline
}

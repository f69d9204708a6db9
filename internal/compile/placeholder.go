package compile

import (
	"fmt"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
)

// placeholderTemplate renders a clearly marked stand-in for a broken scene.
// It carries the scene id, display name and error so the player can show an
// actionable repair prompt instead of a blank gap.
const placeholderTemplate = `export default function ScenePlaceholder() {
  return (
    <AbsoluteFill style={{backgroundColor: '#1a1a2e', alignItems: 'center', justifyContent: 'center'}}>
      <div style={{color: '#e94560', fontSize: 42, fontWeight: 700}}>%s</div>
      <div style={{color: '#f5f5f5', fontSize: 20, marginTop: 16, maxWidth: '70%%'}}>%s</div>
      <div style={{color: '#888', fontSize: 14, marginTop: 8}}>scene %s</div>
    </AbsoluteFill>
  );
}
`

// Placeholder builds the deterministic artifact substituted for a scene
// whose compilation failed. The scene keeps its last known duration so the
// timeline length does not shift under failure.
func Placeholder(scene *core.SceneEntity, errMsg string) core.CompiledArtifact {
	name := scene.Meta.Name
	if name == "" {
		name = "Untitled scene"
	}
	return core.CompiledArtifact{
		SceneID:     scene.ID,
		Name:        name,
		Hash:        core.HashCode(scene.Code),
		Duration:    scene.Duration,
		Module:      fmt.Sprintf(placeholderTemplate, name, errMsg, scene.ID),
		Placeholder: true,
		Error:       errMsg,
		CompiledAt:  time.Now(),
	}
}

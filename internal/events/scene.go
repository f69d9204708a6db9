package events

// Event type constants for scene lifecycle events.
const (
	TypeSceneMutated  = "scene_mutated"
	TypeSceneCompiled = "scene_compiled"
	TypeSceneBroken   = "scene_broken"
	TypeSceneRepaired = "scene_repaired"
)

// SceneMutatedEvent is emitted after a mutation is applied to the store.
type SceneMutatedEvent struct {
	BaseEvent
	SceneID   string `json:"scene_id"`
	Operation string `json:"operation"`
	Tool      string `json:"tool,omitempty"`
	Frames    int    `json:"frames,omitempty"`
}

// NewSceneMutatedEvent creates a new scene mutated event.
func NewSceneMutatedEvent(projectID, sceneID, operation, tool string, frames int) SceneMutatedEvent {
	return SceneMutatedEvent{
		BaseEvent: NewBaseEvent(TypeSceneMutated, projectID),
		SceneID:   sceneID,
		Operation: operation,
		Tool:      tool,
		Frames:    frames,
	}
}

// SceneCompiledEvent is emitted when a scene compiles successfully.
type SceneCompiledEvent struct {
	BaseEvent
	SceneID string `json:"scene_id"`
	Hash    string `json:"hash"`
	Frames  int    `json:"frames"`
}

// NewSceneCompiledEvent creates a new scene compiled event.
func NewSceneCompiledEvent(projectID, sceneID, hash string, frames int) SceneCompiledEvent {
	return SceneCompiledEvent{
		BaseEvent: NewBaseEvent(TypeSceneCompiled, projectID),
		SceneID:   sceneID,
		Hash:      hash,
		Frames:    frames,
	}
}

// SceneBrokenEvent is the repair signal. It is emitted once per distinct
// failure occurrence, at the moment a placeholder artifact is produced, and
// carries the literal error text and the exact broken source.
type SceneBrokenEvent struct {
	BaseEvent
	SceneID      string `json:"scene_id"`
	SceneName    string `json:"scene_name"`
	ErrorMessage string `json:"error_message"`
	BrokenCode   string `json:"broken_code"`
	Hash         string `json:"hash"`
}

// NewSceneBrokenEvent creates a new scene broken event.
func NewSceneBrokenEvent(projectID, sceneID, sceneName, errorMessage, brokenCode, hash string) SceneBrokenEvent {
	return SceneBrokenEvent{
		BaseEvent:    NewBaseEvent(TypeSceneBroken, projectID),
		SceneID:      sceneID,
		SceneName:    sceneName,
		ErrorMessage: errorMessage,
		BrokenCode:   brokenCode,
		Hash:         hash,
	}
}

// SceneRepairedEvent is emitted when a previously broken scene compiles.
type SceneRepairedEvent struct {
	BaseEvent
	SceneID string `json:"scene_id"`
	Origin  string `json:"origin"` // automatic | user
}

// NewSceneRepairedEvent creates a new scene repaired event.
func NewSceneRepairedEvent(projectID, sceneID, origin string) SceneRepairedEvent {
	return SceneRepairedEvent{
		BaseEvent: NewBaseEvent(TypeSceneRepaired, projectID),
		SceneID:   sceneID,
		Origin:    origin,
	}
}

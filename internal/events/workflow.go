package events

// Event type constants for request/workflow events.
const (
	TypeRequestAccepted    = "request_accepted"
	TypeRequestClarify     = "request_clarify"
	TypeStepStarted        = "step_started"
	TypeStepCompleted      = "step_completed"
	TypeStepFailed         = "step_failed"
	TypeWorkflowCompleted  = "workflow_completed"
	TypeWorkflowFailed     = "workflow_failed"
	TypeTimelineRecomposed = "timeline_recomposed"
)

// RequestAcceptedEvent is emitted when the coordinator starts a request.
type RequestAcceptedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Prompt    string `json:"prompt"`
}

// NewRequestAcceptedEvent creates a new request accepted event.
func NewRequestAcceptedEvent(projectID, requestID, prompt string) RequestAcceptedEvent {
	return RequestAcceptedEvent{
		BaseEvent: NewBaseEvent(TypeRequestAccepted, projectID),
		RequestID: requestID,
		Prompt:    prompt,
	}
}

// RequestClarifyEvent is emitted when the analyzer needs clarification.
type RequestClarifyEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Question  string `json:"question"`
}

// NewRequestClarifyEvent creates a new clarification event.
func NewRequestClarifyEvent(projectID, requestID, question string) RequestClarifyEvent {
	return RequestClarifyEvent{
		BaseEvent: NewBaseEvent(TypeRequestClarify, projectID),
		RequestID: requestID,
		Question:  question,
	}
}

// StepStartedEvent is emitted before a plan step executes.
type StepStartedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Index     int    `json:"index"`
	Tool      string `json:"tool"`
	SceneID   string `json:"scene_id,omitempty"`
}

// NewStepStartedEvent creates a new step started event.
func NewStepStartedEvent(projectID, requestID string, index int, tool, sceneID string) StepStartedEvent {
	return StepStartedEvent{
		BaseEvent: NewBaseEvent(TypeStepStarted, projectID),
		RequestID: requestID,
		Index:     index,
		Tool:      tool,
		SceneID:   sceneID,
	}
}

// StepCompletedEvent is emitted after a plan step applies its mutation.
type StepCompletedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Index     int    `json:"index"`
	Tool      string `json:"tool"`
	SceneID   string `json:"scene_id,omitempty"`
}

// NewStepCompletedEvent creates a new step completed event.
func NewStepCompletedEvent(projectID, requestID string, index int, tool, sceneID string) StepCompletedEvent {
	return StepCompletedEvent{
		BaseEvent: NewBaseEvent(TypeStepCompleted, projectID),
		RequestID: requestID,
		Index:     index,
		Tool:      tool,
		SceneID:   sceneID,
	}
}

// StepFailedEvent is emitted when a step halts the remaining plan.
type StepFailedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Index     int    `json:"index"`
	Tool      string `json:"tool"`
	Error     string `json:"error"`
}

// NewStepFailedEvent creates a new step failed event.
func NewStepFailedEvent(projectID, requestID string, index int, tool, errMsg string) StepFailedEvent {
	return StepFailedEvent{
		BaseEvent: NewBaseEvent(TypeStepFailed, projectID),
		RequestID: requestID,
		Index:     index,
		Tool:      tool,
		Error:     errMsg,
	}
}

// WorkflowCompletedEvent is emitted when all plan steps finished.
type WorkflowCompletedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Steps     int    `json:"steps"`
}

// NewWorkflowCompletedEvent creates a new workflow completed event.
func NewWorkflowCompletedEvent(projectID, requestID string, steps int) WorkflowCompletedEvent {
	return WorkflowCompletedEvent{
		BaseEvent: NewBaseEvent(TypeWorkflowCompleted, projectID),
		RequestID: requestID,
		Steps:     steps,
	}
}

// WorkflowFailedEvent is emitted when a plan halted early.
type WorkflowFailedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	FailedAt  int    `json:"failed_at"`
	Error     string `json:"error"`
}

// NewWorkflowFailedEvent creates a new workflow failed event.
func NewWorkflowFailedEvent(projectID, requestID string, failedAt int, errMsg string) WorkflowFailedEvent {
	return WorkflowFailedEvent{
		BaseEvent: NewBaseEvent(TypeWorkflowFailed, projectID),
		RequestID: requestID,
		FailedAt:  failedAt,
		Error:     errMsg,
	}
}

// TimelineRecomposedEvent is emitted after the timeline fold runs.
type TimelineRecomposedEvent struct {
	BaseEvent
	Version     int64 `json:"version"`
	TotalFrames int   `json:"total_frames"`
	BrokenCount int   `json:"broken_count"`
}

// NewTimelineRecomposedEvent creates a new timeline recomposed event.
func NewTimelineRecomposedEvent(projectID string, version int64, totalFrames, brokenCount int) TimelineRecomposedEvent {
	return TimelineRecomposedEvent{
		BaseEvent:   NewBaseEvent(TypeTimelineRecomposed, projectID),
		Version:     version,
		TotalFrames: totalFrames,
		BrokenCount: brokenCount,
	}
}

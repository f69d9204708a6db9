package core

import (
	"context"
	"time"
)

// =============================================================================
// Tool Adapter Port
// =============================================================================

// ToolAdapter is one specialized generator performing a single scene
// mutation kind. Adapters are opaque: structured input in, generated
// code/metadata or an error out.
type ToolAdapter interface {
	// Name returns the tool identifier.
	Name() ToolName

	// Kind returns the mutation class of the tool.
	Kind() ToolKind

	// Invoke runs the tool. The call suspends on the external generation
	// service; the executor awaits completion before the next step.
	Invoke(ctx context.Context, input ToolInput) (*ToolOutput, error)
}

// ToolRegistry resolves tool names to adapters over the closed enumeration.
type ToolRegistry interface {
	// Get returns the adapter for a tool name.
	Get(name ToolName) (ToolAdapter, error)

	// List returns all registered tool names.
	List() []ToolName
}

// =============================================================================
// Chat Client Port
// =============================================================================

// ChatMessage is one turn sent to the language model.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a completion request against the language model.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature *float64 // nil uses the endpoint default, 0 is deterministic
	MaxTokens   int      // 0 uses the endpoint default
}

// ChatResponse is the completion result.
type ChatResponse struct {
	Content      string
	Model        string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// ChatClient is the language model transport behind the intent analyzer
// and the generation tool adapters.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// =============================================================================
// Scene Store Port
// =============================================================================

// SceneStore is the authoritative ordered collection of scenes. It is the
// sole shared mutable resource; only the Result Processor applies mutations,
// and each Apply is atomic so readers never observe a partial mutation.
type SceneStore interface {
	// Snapshot returns a versioned snapshot of a project's ordered scenes.
	Snapshot(ctx context.Context, projectID ProjectID) (*SceneSnapshot, error)

	// Apply performs one mutation and returns the resulting snapshot.
	Apply(ctx context.Context, m *SceneMutation) (*SceneSnapshot, error)

	// SetStatus records the compile outcome for a scene without touching
	// its code or order.
	SetStatus(ctx context.Context, projectID ProjectID, sceneID SceneID, status SceneStatus, compileErr string) error

	// Reorder replaces the scene ordering with the given id sequence.
	Reorder(ctx context.Context, projectID ProjectID, order []SceneID) (*SceneSnapshot, error)
}

// =============================================================================
// Conversation History Port
// =============================================================================

// Message is one turn of a project's conversation history.
type Message struct {
	ID        string    `json:"id"`
	ProjectID ProjectID `json:"project_id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists conversation history per project for the Intent
// Analyzer's context window.
type HistoryStore interface {
	// Append adds a message to a project's history.
	Append(ctx context.Context, msg *Message) error

	// Recent returns up to limit most recent messages, oldest first.
	Recent(ctx context.Context, projectID ProjectID, limit int) ([]*Message, error)
}

// =============================================================================
// Brand Extraction Port
// =============================================================================

// Evidence ties extracted content back to its source so URL-derived
// generation cannot fabricate claims.
type Evidence struct {
	SourceURL string `json:"source_url"`
	Selector  string `json:"selector,omitempty"`
	Verbatim  string `json:"verbatim"`
}

// BrandSection is one evidence-tagged content block from an extracted page.
type BrandSection struct {
	Heading  string   `json:"heading,omitempty"`
	Text     string   `json:"text"`
	Evidence Evidence `json:"evidence"`
}

// BrandContext is the evidence-tagged content structure supplied to tool
// adapters for URL-derived generation.
type BrandContext struct {
	URL         string         `json:"url"`
	Title       string         `json:"title,omitempty"`
	Sections    []BrandSection `json:"sections,omitempty"`
	Palette     []string       `json:"palette,omitempty"` // hex colors, most prominent first
	ExtractedAt time.Time      `json:"extracted_at"`
}

// BrandExtractor turns a URL into an evidence-tagged brand context.
type BrandExtractor interface {
	Extract(ctx context.Context, url string) (*BrandContext, error)
}

package llm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"playground/internal/schema"
)

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotConfigured is returned when an adapter lacks credentials or a model.
var ErrNotConfigured = errors.New("llm adapter not configured")

// Message represents a chat message
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`    // "system", "user", "assistant"
	Content   string    `json:"content"` // The message content
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh ID and the current time.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Tool is a function the model may call instead of answering in text.
type Tool struct {
	Name        string
	Description string
	Parameters  *schema.Object
}

// Request is one streamed chat completion.
type Request struct {
	Messages   []Message
	Tools      []Tool
	ToolChoice string // "auto", "none" or empty
	MaxTokens  int
}

// ToolCallDelta is the tool-call payload carried by a fragment. Arguments is
// raw JSON text exactly as delivered by the provider.
type ToolCallDelta struct {
	ID        string
	Name      string
	Arguments string
}

// Fragment is one incremental unit of a streamed response. Either field may
// be empty; a fragment with neither is a no-op.
type Fragment struct {
	Content  string
	ToolCall *ToolCallDelta
}

// Stream is a finite, forward-only sequence of fragments. Recv returns io.EOF
// once the provider has finished.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Adapter defines the interface for LLM providers
type Adapter interface {
	// Stream opens a streamed completion for req.
	Stream(ctx context.Context, req Request) (Stream, error)

	// GetModelName returns the current model name
	GetModelName() string

	// IsAvailable checks if the adapter is properly configured and available
	IsAvailable() bool
}

// AdapterConfig contains common configuration for LLM adapters
type AdapterConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// DefaultTimeout bounds connection setup for LLM requests. Streams themselves
// are bounded only by the caller's context.
const DefaultTimeout = 30 * time.Second

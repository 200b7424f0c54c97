package events

// MessagePayload accompanies MessageAppended and MessageUpdated.
type MessagePayload struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FilePayload accompanies FileCreated and FileWritten. FileWritten carries
// the final content so subscribers that rebuilt a file from chunks can
// reconcile.
type FilePayload struct {
	Path    string `json:"path"`
	Length  int    `json:"length"`
	Content string `json:"content,omitempty"`
}

// ChunkPayload accompanies GenerationChunk.
type ChunkPayload struct {
	Path  string `json:"path"`
	Delta string `json:"delta"`
}

// GenerationPayload accompanies GenerationStarted and GenerationFinished.
type GenerationPayload struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Error    string `json:"error,omitempty"`
	Added    int    `json:"added,omitempty"`
	Removed  int    `json:"removed,omitempty"`
	Replaced bool   `json:"replaced,omitempty"`
}

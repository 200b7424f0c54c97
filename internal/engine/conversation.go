package engine

import (
	"sync"

	"playground/llm"
)

// Conversation is the ordered message history replayed on every primary
// request. Messages are only appended or, for the assistant turn being
// streamed, extended in place.
type Conversation struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds msg and returns its index.
func (c *Conversation) Append(msg llm.Message) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return len(c.messages) - 1
}

// Extend appends delta to the content of the message at index and returns
// the updated message.
func (c *Conversation) Extend(index int, delta string) llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[index].Content += delta
	return c.messages[index]
}

// Messages returns a snapshot of the history.
func (c *Conversation) Messages() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]llm.Message(nil), c.messages...)
}

// Len reports the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Restore replaces the history, e.g. when resuming a saved thread.
func (c *Conversation) Restore(msgs []llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append([]llm.Message(nil), msgs...)
}

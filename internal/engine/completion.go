package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"playground/internal/prompts"
	"playground/llm"
)

// DefaultCompletionTokens caps an inline completion unless overridden.
const DefaultCompletionTokens = 32768

// Completer continues a code snippet with a single plain stream. It shares
// the orchestrator's send slot, so completions and chat turns never overlap.
type Completer struct {
	o         *Orchestrator
	prompt    string
	maxTokens int
}

// Completer returns a completer bound to o.
func (o *Orchestrator) Completer() *Completer {
	return &Completer{o: o, prompt: prompts.Completion, maxTokens: DefaultCompletionTokens}
}

// WithPrompt replaces the instruction sent ahead of the snippet.
func (c *Completer) WithPrompt(prompt string) *Completer {
	if prompt != "" {
		c.prompt = prompt
	}
	return c
}

// WithMaxTokens overrides the token cap.
func (c *Completer) WithMaxTokens(n int) *Completer {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// Complete streams a continuation of input, passing each delta to onChunk,
// and returns the full text.
func (c *Completer) Complete(ctx context.Context, input string, onChunk func(chunk string)) (string, error) {
	if err := c.o.slot.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.o.slot.Release(1)

	c.o.setBusy(true)
	defer c.o.setBusy(false)

	stream, err := c.o.llm.Stream(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: c.prompt},
			{Role: llm.RoleUser, Content: input},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion stream: %w", err)
	}
	defer stream.Close()

	var out strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out.String(), fmt.Errorf("completion stream: %w", err)
		}
		if frag.Content == "" {
			continue
		}
		out.WriteString(frag.Content)
		if onChunk != nil {
			onChunk(frag.Content)
		}
	}
	c.o.logger.Debug().Int("chars", out.Len()).Msg("completion finished")
	return out.String(), nil
}

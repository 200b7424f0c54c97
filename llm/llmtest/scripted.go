// Package llmtest provides a scripted llm.Adapter that replays canned
// fragments and records every request it receives.
package llmtest

import (
	"context"
	"errors"
	"io"
	"sync"

	"playground/llm"
)

// Script is the canned outcome of one Stream call.
type Script struct {
	Fragments []llm.Fragment
	// OpenErr fails the Stream call itself.
	OpenErr error
	// Err is returned by Recv after all fragments were delivered.
	Err error
	// Before, when set, runs before each fragment is delivered.
	Before func(i int)
}

// Text builds a script of plain-text fragments.
func Text(chunks ...string) Script {
	s := Script{}
	for _, c := range chunks {
		s.Fragments = append(s.Fragments, llm.Fragment{Content: c})
	}
	return s
}

// ToolCall builds a script whose first fragment is a tool call.
func ToolCall(name, arguments string) Script {
	return Script{Fragments: []llm.Fragment{{ToolCall: &llm.ToolCallDelta{ID: "call_1", Name: name, Arguments: arguments}}}}
}

// ErrExhausted is returned when more streams are opened than scripted.
var ErrExhausted = errors.New("llmtest: no scripted response left")

// Adapter replays scripts in order, one per Stream call.
type Adapter struct {
	mu       sync.Mutex
	scripts  []Script
	requests []llm.Request
	closed   int
}

// New returns an adapter that will answer len(scripts) Stream calls.
func New(scripts ...Script) *Adapter {
	return &Adapter{scripts: scripts}
}

func (a *Adapter) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, cloneRequest(req))
	if len(a.scripts) == 0 {
		return nil, ErrExhausted
	}
	s := a.scripts[0]
	a.scripts = a.scripts[1:]
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	return &stream{ctx: ctx, script: s, owner: a}, nil
}

func (a *Adapter) GetModelName() string { return "scripted" }
func (a *Adapter) IsAvailable() bool    { return true }

// Requests returns every request seen so far.
func (a *Adapter) Requests() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Request(nil), a.requests...)
}

// Closed reports how many streams were closed by their consumer.
func (a *Adapter) Closed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func cloneRequest(req llm.Request) llm.Request {
	req.Messages = append([]llm.Message(nil), req.Messages...)
	req.Tools = append([]llm.Tool(nil), req.Tools...)
	return req
}

type stream struct {
	ctx    context.Context
	script Script
	pos    int
	owner  *Adapter
}

func (s *stream) Recv() (llm.Fragment, error) {
	if err := s.ctx.Err(); err != nil {
		return llm.Fragment{}, err
	}
	if s.pos >= len(s.script.Fragments) {
		if s.script.Err != nil {
			return llm.Fragment{}, s.script.Err
		}
		return llm.Fragment{}, io.EOF
	}
	if s.script.Before != nil {
		s.script.Before(s.pos)
	}
	f := s.script.Fragments[s.pos]
	s.pos++
	return f, nil
}

func (s *stream) Close() error {
	s.owner.mu.Lock()
	s.owner.closed++
	s.owner.mu.Unlock()
	return nil
}

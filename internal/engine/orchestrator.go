package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"playground/internal/changes"
	"playground/internal/events"
	"playground/internal/logging"
	"playground/internal/prompts"
	"playground/internal/vfs"
	"playground/llm"
)

// ErrBusy is returned by TrySendMessage while another send is in flight.
var ErrBusy = errors.New("orchestrator is busy")

// State is the orchestrator's position in a send.
type State int32

const (
	StateIdle State = iota
	StateAwaitingPrimary
	StateStreamingText
	StateToolDetected
	StateAwaitingSecondary
	StateStreamingFile
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPrimary:
		return "awaiting_primary"
	case StateStreamingText:
		return "streaming_text"
	case StateToolDetected:
		return "tool_detected"
	case StateAwaitingSecondary:
		return "awaiting_secondary"
	case StateStreamingFile:
		return "streaming_file"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Generation records the most recent code generation, including a partial
// one that failed mid-stream.
type Generation struct {
	// RawArguments is the tool-call payload exactly as the model sent it.
	RawArguments string
	Argument     CodeArgument
	Placeholder  string
	Content      string
	Change       *changes.Change
	Err          error
	Started      time.Time
	Finished     time.Time
}

// Orchestrator turns chat turns into file generations against a virtual
// filesystem. Sends are serialized: at most one is in flight and later
// callers queue behind it.
type Orchestrator struct {
	llm     llm.Adapter
	store   *vfs.Store
	sandbox vfs.Sandbox

	registry    *prompts.Registry
	decoder     *Decoder
	convo       *Conversation
	bus         *events.EventBus
	changes     *changes.Log
	logger      *zerolog.Logger
	maxTokens   int
	stripFences bool

	slot  *semaphore.Weighted
	busy  atomic.Bool
	state atomic.Int32

	mu   sync.RWMutex
	last *Generation
}

// New creates an orchestrator writing into store, materializing files in
// sandbox.
func New(adapter llm.Adapter, store *vfs.Store, sandbox vfs.Sandbox) *Orchestrator {
	return &Orchestrator{
		llm:      adapter,
		store:    store,
		sandbox:  sandbox,
		registry: prompts.NewRegistry(nil),
		decoder:  NewDecoder(),
		convo:    NewConversation(),
		changes:  changes.NewLog(),
		logger:   logging.Nop(),
		slot:     semaphore.NewWeighted(1),
	}
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(logger *zerolog.Logger) *Orchestrator {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// WithEventBus publishes conversation, state and file events on bus.
func (o *Orchestrator) WithEventBus(bus *events.EventBus) *Orchestrator {
	o.bus = bus
	return o
}

// WithRegistry replaces the built-in prompt registry.
func (o *Orchestrator) WithRegistry(registry *prompts.Registry) *Orchestrator {
	if registry != nil {
		o.registry = registry
	}
	return o
}

// WithChangeLog records finished generations into log.
func (o *Orchestrator) WithChangeLog(log *changes.Log) *Orchestrator {
	if log != nil {
		o.changes = log
	}
	return o
}

// WithMaxTokens caps both requests; zero leaves the provider default.
func (o *Orchestrator) WithMaxTokens(n int) *Orchestrator {
	o.maxTokens = n
	return o
}

// WithStripFences makes a finished generation drop a code fence wrapping the
// whole file.
func (o *Orchestrator) WithStripFences(strip bool) *Orchestrator {
	o.stripFences = strip
	return o
}

// SendMessage runs one chat turn. If a send is already in flight it waits
// for it; ctx bounds both the wait and the streams. onChunk, when set,
// receives each raw delta of a file generation.
func (o *Orchestrator) SendMessage(ctx context.Context, content string, onChunk func(chunk string)) error {
	if err := o.slot.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.slot.Release(1)
	return o.send(ctx, content, onChunk)
}

// TrySendMessage is SendMessage without queueing: it returns ErrBusy when a
// send is in flight.
func (o *Orchestrator) TrySendMessage(ctx context.Context, content string, onChunk func(chunk string)) error {
	if !o.slot.TryAcquire(1) {
		return ErrBusy
	}
	defer o.slot.Release(1)
	return o.send(ctx, content, onChunk)
}

// StartMessage runs a turn in a new goroutine, or returns ErrBusy without
// starting anything when a send is in flight. The returned channel receives
// the turn's outcome.
func (o *Orchestrator) StartMessage(ctx context.Context, content string, onChunk func(chunk string)) (<-chan error, error) {
	if !o.slot.TryAcquire(1) {
		return nil, ErrBusy
	}
	done := make(chan error, 1)
	go func() {
		defer o.slot.Release(1)
		done <- o.send(ctx, content, onChunk)
	}()
	return done, nil
}

func (o *Orchestrator) send(ctx context.Context, content string, onChunk func(string)) error {
	o.setBusy(true)
	defer func() {
		o.setState(StateIdle)
		o.setBusy(false)
	}()

	o.appendMessage(llm.NewMessage(llm.RoleUser, content))

	// The user's text doubles as the system framing of this request.
	req := llm.Request{
		Messages:   append([]llm.Message{{Role: llm.RoleSystem, Content: content}}, o.convo.Messages()...),
		Tools:      []llm.Tool{CodeGenerationTool()},
		ToolChoice: "auto",
		MaxTokens:  o.maxTokens,
	}

	o.setState(StateAwaitingPrimary)
	stream, err := o.llm.Stream(ctx, req)
	if err != nil {
		o.logger.Error().Err(err).Msg("primary stream failed to open")
		return fmt.Errorf("primary stream: %w", err)
	}

	reply := -1
	result, err := o.decoder.Decode(ctx, stream, func(delta string) {
		if reply < 0 {
			o.setState(StateStreamingText)
			reply = o.appendMessage(llm.NewMessage(llm.RoleAssistant, delta))
			return
		}
		o.extendMessage(reply, delta)
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("primary stream failed")
		return fmt.Errorf("primary stream: %w", err)
	}
	if result.ToolCall == nil {
		o.logger.Debug().Int("chars", len(result.Text)).Msg("assistant replied with text")
		return nil
	}

	o.setState(StateToolDetected)
	if result.ToolCall.Name != "" && result.ToolCall.Name != ToolName {
		return fmt.Errorf("%w: %s", ErrUnknownTool, result.ToolCall.Name)
	}
	return o.generate(ctx, result.ToolCall.Arguments, onChunk)
}

// IsBusy reports whether a send is in flight.
func (o *Orchestrator) IsBusy() bool {
	return o.busy.Load()
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Messages returns a snapshot of the conversation.
func (o *Orchestrator) Messages() []llm.Message {
	return o.convo.Messages()
}

// RestoreConversation replaces the conversation with msgs. It waits for any
// send in flight.
func (o *Orchestrator) RestoreConversation(ctx context.Context, msgs []llm.Message) error {
	if err := o.slot.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.slot.Release(1)
	o.convo.Restore(msgs)
	return nil
}

// LastGeneration returns the most recent generation, if any.
func (o *Orchestrator) LastGeneration() (Generation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return Generation{}, false
	}
	return *o.last, true
}

// Store returns the virtual filesystem the orchestrator writes into.
func (o *Orchestrator) Store() *vfs.Store {
	return o.store
}

// Changes returns the change log.
func (o *Orchestrator) Changes() *changes.Log {
	return o.changes
}

// Model names the model behind the adapter.
func (o *Orchestrator) Model() string {
	return o.llm.GetModelName()
}

func (o *Orchestrator) setBusy(busy bool) {
	o.busy.Store(busy)
	o.bus.Emit(events.BusyChanged, busy)
}

func (o *Orchestrator) setState(s State) {
	prev := State(o.state.Swap(int32(s)))
	if prev == s {
		return
	}
	o.logger.Debug().Stringer("from", prev).Stringer("to", s).Msg("state")
	o.bus.Emit(events.StateChanged, s.String())
}

func (o *Orchestrator) appendMessage(msg llm.Message) int {
	index := o.convo.Append(msg)
	o.bus.Emit(events.MessageAppended, messagePayload(index, msg))
	return index
}

func (o *Orchestrator) extendMessage(index int, delta string) {
	msg := o.convo.Extend(index, delta)
	o.bus.Emit(events.MessageUpdated, messagePayload(index, msg))
}

func messagePayload(index int, msg llm.Message) events.MessagePayload {
	return events.MessagePayload{Index: index, ID: msg.ID, Role: msg.Role, Content: msg.Content}
}

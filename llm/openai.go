package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Base URLs for providers that speak the OpenAI chat-completions dialect.
const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	ollamaBaseURL    = "http://localhost:11434/v1"
	anthropicBaseURL = "https://api.anthropic.com/v1/"
)

// OpenAIAdapter implements Adapter for OpenAI and OpenAI-compatible APIs
type OpenAIAdapter struct {
	client *openai.Client
	config AdapterConfig
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config AdapterConfig) *OpenAIAdapter {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	// Only connection setup is bounded; a stream may run as long as the
	// caller's context allows.
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: config.Timeout}).DialContext,
			TLSHandshakeTimeout:   config.Timeout,
			ResponseHeaderTimeout: config.Timeout,
		},
	}

	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Stream implements Adapter.Stream
func (o *OpenAIAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	if !o.IsAvailable() {
		return nil, fmt.Errorf("%s: %w", o.config.Provider, ErrNotConfigured)
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, o.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("OpenAI stream error: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

func (o *OpenAIAdapter) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	out := openai.ChatCompletionRequest{
		Model:     o.config.Model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: req.MaxTokens,
	}
	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters.JSON(),
			},
		})
	}
	if len(out.Tools) > 0 && req.ToolChoice != "" {
		out.ToolChoice = req.ToolChoice
	}
	return out
}

// GetModelName implements Adapter.GetModelName
func (o *OpenAIAdapter) GetModelName() string {
	return o.config.Model
}

// IsAvailable implements Adapter.IsAvailable. Local servers such as Ollama
// accept requests without a key.
func (o *OpenAIAdapter) IsAvailable() bool {
	if o.config.Model == "" {
		return false
	}
	return o.config.APIKey != "" || o.config.Provider == "ollama"
}

type openAIStream struct {
	stream  *openai.ChatCompletionStream
	pending *Fragment
	done    bool
}

// Recv returns the next fragment. Tool-call arguments split over several
// deltas are coalesced into a single fragment so that the first tool-call
// fragment a caller observes already carries the complete JSON arguments.
func (s *openAIStream) Recv() (Fragment, error) {
	if s.pending != nil {
		f := *s.pending
		s.pending = nil
		return f, nil
	}
	if s.done {
		return Fragment{}, io.EOF
	}

	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return Fragment{}, io.EOF
		}
		return Fragment{}, fmt.Errorf("OpenAI stream recv error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Fragment{}, nil
	}

	delta := resp.Choices[0].Delta
	if len(delta.ToolCalls) == 0 {
		return Fragment{Content: delta.Content}, nil
	}

	call := &ToolCallDelta{
		ID:        delta.ToolCalls[0].ID,
		Name:      delta.ToolCalls[0].Function.Name,
		Arguments: delta.ToolCalls[0].Function.Arguments,
	}
	index := toolIndex(delta.ToolCalls[0])
	if err := s.collectArguments(call, index); err != nil {
		return Fragment{}, err
	}
	return Fragment{ToolCall: call}, nil
}

func (s *openAIStream) collectArguments(call *ToolCallDelta, index int) error {
	var args strings.Builder
	args.WriteString(call.Arguments)
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			return fmt.Errorf("OpenAI stream recv error: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if len(delta.ToolCalls) == 0 {
			if delta.Content != "" {
				s.pending = &Fragment{Content: delta.Content}
				break
			}
			if resp.Choices[0].FinishReason != "" {
				break
			}
			continue
		}
		tc := delta.ToolCalls[0]
		if toolIndex(tc) != index {
			// Only the first call is honoured; later calls are dropped.
			continue
		}
		if call.ID == "" {
			call.ID = tc.ID
		}
		if call.Name == "" {
			call.Name = tc.Function.Name
		}
		args.WriteString(tc.Function.Arguments)
	}
	call.Arguments = args.String()
	return nil
}

func toolIndex(tc openai.ToolCall) int {
	if tc.Index == nil {
		return 0
	}
	return *tc.Index
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

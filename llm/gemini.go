package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"

	"playground/internal/schema"
)

// GeminiAdapter implements Adapter on the Google GenAI SDK.
type GeminiAdapter struct {
	client *genai.Client
	config AdapterConfig
}

// NewGeminiAdapter creates a Gemini adapter. The client is built eagerly so
// credential problems surface at startup.
func NewGeminiAdapter(ctx context.Context, config AdapterConfig) (*GeminiAdapter, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiAdapter{client: client, config: config}, nil
}

// Stream implements Adapter.Stream
func (g *GeminiAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	if !g.IsAvailable() {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	contents, cfg := g.buildRequest(req)
	seq := g.client.Models.GenerateContentStream(ctx, g.config.Model, contents, cfg)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

func (g *GeminiAdapter) buildRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var system []string
	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	if req.ToolChoice != "none" && len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  toGeminiSchema(tool.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return contents, cfg
}

func toGeminiSchema(obj *schema.Object) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.TypeObject,
		Description: obj.Description,
		Properties:  make(map[string]*genai.Schema, len(obj.Fields)),
		Required:    obj.RequiredNames(),
	}
	for _, f := range obj.Fields {
		prop := &genai.Schema{
			Type:        geminiType(f.Kind),
			Description: f.Description,
			Enum:        f.Enum,
		}
		if f.Nullable {
			nullable := true
			prop.Nullable = &nullable
		}
		out.Properties[f.Name] = prop
	}
	return out
}

func geminiType(kind schema.Kind) genai.Type {
	switch kind {
	case schema.KindNumber:
		return genai.TypeNumber
	case schema.KindInteger:
		return genai.TypeInteger
	case schema.KindBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// GetModelName implements Adapter.GetModelName
func (g *GeminiAdapter) GetModelName() string {
	return g.config.Model
}

// IsAvailable implements Adapter.IsAvailable
func (g *GeminiAdapter) IsAvailable() bool {
	return g.config.APIKey != "" && g.config.Model != ""
}

type geminiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending []Fragment
}

// Recv flattens each response chunk into fragments, one per part.
func (s *geminiStream) Recv() (Fragment, error) {
	for len(s.pending) == 0 {
		resp, err, ok := s.next()
		if !ok {
			return Fragment{}, io.EOF
		}
		if err != nil {
			return Fragment{}, fmt.Errorf("gemini stream recv error: %w", err)
		}
		frags, err := geminiFragments(resp)
		if err != nil {
			return Fragment{}, err
		}
		if len(frags) == 0 {
			return Fragment{}, nil
		}
		s.pending = frags
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

func geminiFragments(resp *genai.GenerateContentResponse) ([]Fragment, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}
	var out []Fragment
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("encode gemini function args: %w", err)
			}
			out = append(out, Fragment{ToolCall: &ToolCallDelta{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			}})
			continue
		}
		if part.Text != "" {
			out = append(out, Fragment{Content: part.Text})
		}
	}
	return out, nil
}

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}

// Package mcpserver exposes the orchestrator as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"playground/internal/engine"
	"playground/internal/logging"
	"playground/internal/schema"
	"playground/llm"
)

const (
	toolSendMessage  = "send_message"
	toolListFiles    = "list_files"
	toolReadFile     = "read_file"
	toolCompleteCode = "complete_code"
)

var (
	sendMessageInput = schema.NewObject(toolSendMessage,
		schema.String("content").Describe("Message to send to the assistant. It may answer in text or generate a file.").MarkRequired(),
	)
	listFilesInput = schema.NewObject(toolListFiles,
		schema.String("prefix").Describe("Only list paths starting with this prefix"),
	)
	readFileInput = schema.NewObject(toolReadFile,
		schema.String("path").Describe("Path of the file in the virtual project").MarkRequired(),
	)
	completeCodeInput = schema.NewObject(toolCompleteCode,
		schema.String("code").Describe("Code snippet to continue").MarkRequired(),
	)
)

// Server wraps an orchestrator in an MCP server.
type Server struct {
	orch   *engine.Orchestrator
	mcp    *server.MCPServer
	logger *zerolog.Logger
}

// New registers the playground tools.
func New(orch *engine.Orchestrator, version string, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		orch:   orch,
		mcp:    server.NewMCPServer("playground", version, server.WithToolCapabilities(true)),
		logger: logger,
	}

	s.mcp.AddTool(tool(toolSendMessage,
		"Send a chat message. When the assistant decides to generate code, the file is written into the virtual project and summarized in the result.",
		sendMessageInput), s.handleSendMessage)
	s.mcp.AddTool(tool(toolListFiles, "List files in the virtual project", listFilesInput), s.handleListFiles)
	s.mcp.AddTool(tool(toolReadFile, "Read a file from the virtual project", readFileInput), s.handleReadFile)
	s.mcp.AddTool(tool(toolCompleteCode, "Continue a Vue component snippet", completeCodeInput), s.handleCompleteCode)
	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("mcp server on stdio")
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

func tool(name, description string, input *schema.Object) mcp.Tool {
	props, _ := input.JSON()["properties"].(map[string]any)
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   input.RequiredNames(),
		},
	}
}

type sendResult struct {
	Reply   string   `json:"reply,omitempty"`
	Files   []string `json:"files,omitempty"`
	Changes []string `json:"changes,omitempty"`
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := strings.TrimSpace(request.GetString("content", ""))
	if content == "" {
		return mcp.NewToolResultError("content is required"), nil
	}

	before := s.orch.Changes().Len()
	turnStart := len(s.orch.Messages())
	if err := s.orch.SendMessage(ctx, content, nil); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
	}

	var out sendResult
	msgs := s.orch.Messages()
	for _, m := range msgs[min(turnStart, len(msgs)):] {
		if m.Role == llm.RoleAssistant {
			out.Reply += m.Content
		}
	}
	for _, c := range s.orch.Changes().Since(before) {
		out.Files = append(out.Files, c.Path)
		out.Changes = append(out.Changes, c.Summary())
	}
	return jsonResult(out)
}

func (s *Server) handleListFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := request.GetString("prefix", "")
	var paths []string
	for _, p := range s.orch.Store().Keys() {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no files"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) handleReadFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(request.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	f, ok := s.orch.Store().Get(path)
	if !ok {
		return mcp.NewToolResultError("file not found: " + path), nil
	}
	return mcp.NewToolResultText(f.Content()), nil
}

func (s *Server) handleCompleteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := request.GetString("code", "")
	if strings.TrimSpace(code) == "" {
		return mcp.NewToolResultError("code is required"), nil
	}
	out, err := s.orch.Completer().Complete(ctx, code, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("completion failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

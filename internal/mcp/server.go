// Package mcp exposes the console to MCP clients over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kayz/promptdeck/internal/console"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/promptbuild"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	console *console.Console
	mcp     *server.MCPServer
}

func NewServer(c *console.Console, version string) *Server {
	s := &Server{
		console: c,
		mcp:     server.NewMCPServer("promptdeck", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("expand_prompt",
		mcp.WithDescription("Expand the current prompt template with field values, input and short history"),
		mcp.WithString("mode", mcp.Description("plain (default) or annotated"), mcp.Enum("plain", "annotated")),
	), s.ExpandPrompt)

	s.mcp.AddTool(mcp.NewTool("short_history",
		mcp.WithDescription("Return the formatted multi-round history"),
	), s.ShortHistory)

	s.mcp.AddTool(mcp.NewTool("list_fields",
		mcp.WithDescription("List the template fields as JSON"),
	), s.ListFields)

	s.mcp.AddTool(mcp.NewTool("set_field",
		mcp.WithDescription("Set a field value and optionally enable or disable it"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Field name")),
		mcp.WithString("value", mcp.Description("New value")),
		mcp.WithBoolean("enabled", mcp.Description("Enable or disable the field")),
	), s.SetField)

	s.mcp.AddTool(mcp.NewTool("set_input",
		mcp.WithDescription("Replace the input box text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Input text")),
	), s.SetInput)

	return s
}

// ServeStdio blocks serving JSON-RPC on stdin/stdout.
func (s *Server) ServeStdio() error {
	logger.Info("[MCP] Serving on stdio")
	return server.ServeStdio(s.mcp)
}

// ServeSSE blocks serving the SSE transport on addr.
func (s *Server) ServeSSE(addr string) error {
	logger.Info("[MCP] Serving SSE on %s", addr)
	return server.NewSSEServer(s.mcp).Start(addr)
}

func (s *Server) ExpandPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, _ := req.Params.Arguments["mode"].(string)
	return mcp.NewToolResultText(s.console.Expand(promptbuild.ParseMode(mode))), nil
}

func (s *Server) ShortHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.console.FormattedHistory()), nil
}

func (s *Server) ListFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.console.Fields(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode fields: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) SetField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := req.Params.Arguments["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	value, hasValue := req.Params.Arguments["value"].(string)
	enabled, hasEnabled := req.Params.Arguments["enabled"].(bool)
	if !hasValue && !hasEnabled {
		return mcp.NewToolResultError("value or enabled is required"), nil
	}

	if hasValue {
		if err := s.console.SetFieldValue(name, value); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if hasEnabled {
		if err := s.console.SetFieldEnabled(name, enabled); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Field %s updated", name)), nil
}

func (s *Server) SetInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := req.Params.Arguments["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text is required"), nil
	}
	s.console.SetInput(text)
	return mcp.NewToolResultText("Input updated"), nil
}

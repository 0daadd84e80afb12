// Package mcptool bridges external MCP tool servers into the agent's tool
// registry. Tools discovered over MCP are registered like built-ins; the
// loop cannot tell them apart.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tinkerhq/tinker/agent"
	"github.com/tinkerhq/tinker/llm"
)

// Server is one connected MCP server.
type Server struct {
	name   string
	client *client.Client
	logger *slog.Logger
}

// Connect starts an MCP server over stdio and performs the initialize
// handshake.
func Connect(ctx context.Context, name, command string, args []string, env map[string]string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	envSlice := make([]string, 0, len(env))
	for k, v := range env {
		envSlice = append(envSlice, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(command, envSlice, args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "tinker", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize mcp server %s: %w", name, err)
	}

	logger.Debug("mcp server connected", "server", name, "command", command)
	return &Server{name: name, client: c, logger: logger}, nil
}

// Name returns the configured server name.
func (s *Server) Name() string { return s.name }

// Close shuts the server connection down.
func (s *Server) Close() error {
	return s.client.Close()
}

// RegisterTools discovers the server's tools and registers them on reg.
// Returns the number of tools registered.
func (s *Server) RegisterTools(ctx context.Context, reg *agent.ToolRegistry) (int, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return 0, fmt.Errorf("list tools on %s: %w", s.name, err)
	}

	for _, tool := range result.Tools {
		reg.Register(agent.RegisteredTool{
			Definition: llm.ToolDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaToParameters(tool.InputSchema),
			},
			Executor: s.executor(tool.Name),
		})
		s.logger.Debug("mcp tool registered", "server", s.name, "tool", tool.Name)
	}
	return len(result.Tools), nil
}

// executor returns a ToolExecutor that forwards the call to the server.
func (s *Server) executor(toolName string) agent.ToolExecutor {
	return func(ctx context.Context, args map[string]interface{}, _ agent.ExecutionEnvironment) (string, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = toolName
		req.Params.Arguments = args

		result, err := s.client.CallTool(ctx, req)
		if err != nil {
			return "", fmt.Errorf("mcp tool %s: %w", toolName, err)
		}

		text := flattenContent(result.Content)
		if result.IsError {
			return "", fmt.Errorf("mcp tool %s failed: %s", toolName, text)
		}
		return text, nil
	}
}

// schemaToParameters converts an MCP input schema into the JSON-schema map
// sent with model requests. Both sides are JSON Schema; only the container
// changes.
func schemaToParameters(schema mcp.ToolInputSchema) map[string]interface{} {
	params := map[string]interface{}{
		"type":       schema.Type,
		"properties": schema.Properties,
	}
	if params["type"] == "" {
		params["type"] = "object"
	}
	if params["properties"] == nil {
		params["properties"] = map[string]interface{}{}
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	return params
}

// flattenContent joins all text content blocks of a tool result.
func flattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

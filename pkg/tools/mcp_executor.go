package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServerConfig describes one remote MCP server this executor connects to.
type MCPServerConfig struct {
	ID        string
	Command   string
	Args      []string
	ToolNames []string // empty means all tools on the server are allowed
}

// recoveryAction classifies an MCP call failure for recovery purposes: a
// transport failure gets a fresh session; anything else is not retried.
type recoveryAction int

const (
	noRetry recoveryAction = iota
	retryNewSession
)

func classifyMCPError(err error) recoveryAction {
	if err == nil {
		return noRetry
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return noRetry
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return noRetry
		}
		return retryNewSession
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return retryNewSession
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "closed pipe"} {
		if strings.Contains(msg, s) {
			return retryNewSession
		}
	}
	return noRetry
}

const (
	mcpInitTimeout      = 30 * time.Second
	mcpOperationTimeout = 90 * time.Second
	mcpReinitTimeout    = 10 * time.Second
)

// MCPExecutor is a tools.Executor backed by live sessions against one or
// more MCP servers reached over the modelcontextprotocol/go-sdk transport.
type MCPExecutor struct {
	servers map[string]MCPServerConfig

	mu       sync.Mutex
	sessions map[string]*mcpsdk.ClientSession
	clients  map[string]*mcpsdk.Client

	implName, implVersion string
}

// NewMCPExecutor builds an executor for the given servers. Sessions are
// created lazily on first use per server.
func NewMCPExecutor(servers []MCPServerConfig, implName, implVersion string) *MCPExecutor {
	byID := make(map[string]MCPServerConfig, len(servers))
	for _, s := range servers {
		byID[s.ID] = s
	}
	return &MCPExecutor{
		servers:     byID,
		sessions:    make(map[string]*mcpsdk.ClientSession),
		clients:     make(map[string]*mcpsdk.Client),
		implName:    implName,
		implVersion: implVersion,
	}
}

func (e *MCPExecutor) sessionFor(ctx context.Context, serverID string) (*mcpsdk.ClientSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[serverID]; ok {
		return s, nil
	}
	return e.connectLocked(ctx, serverID)
}

func (e *MCPExecutor) connectLocked(ctx context.Context, serverID string) (*mcpsdk.ClientSession, error) {
	cfg, ok := e.servers[serverID]
	if !ok {
		return nil, fmt.Errorf("unknown MCP server %q", serverID)
	}

	initCtx, cancel := context.WithTimeout(ctx, mcpInitTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: e.implName, Version: e.implVersion}, nil)
	transport := &mcpsdk.CommandTransport{Command: exec.Command(cfg.Command, cfg.Args...)}

	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to MCP server %q: %w", serverID, err)
	}

	e.clients[serverID] = client
	e.sessions[serverID] = session
	return session, nil
}

func (e *MCPExecutor) reconnectLocked(ctx context.Context, serverID string) (*mcpsdk.ClientSession, error) {
	delete(e.sessions, serverID)
	delete(e.clients, serverID)

	reinitCtx, cancel := context.WithTimeout(ctx, mcpReinitTimeout)
	defer cancel()
	return e.connectLocked(reinitCtx, serverID)
}

// ListTools returns every tool across every configured server, prefixed
// with its server ID so the caller's Registry can further qualify on
// collision. Servers that fail to respond are skipped with a warning —
// partial availability beats none.
func (e *MCPExecutor) ListTools(ctx context.Context) ([]Definition, error) {
	var out []Definition
	for serverID, cfg := range e.servers {
		session, err := e.sessionFor(ctx, serverID)
		if err != nil {
			slog.Warn("MCP server unavailable, skipping", "server", serverID, "error", err)
			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, mcpOperationTimeout)
		res, err := session.ListTools(opCtx, nil)
		cancel()
		if err != nil {
			slog.Warn("failed to list MCP tools", "server", serverID, "error", err)
			continue
		}

		for _, t := range res.Tools {
			if len(cfg.ToolNames) > 0 && !contains(cfg.ToolNames, t.Name) {
				continue
			}
			out = append(out, Definition{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: schemaToMap(t.InputSchema),
				Category:    serverID,
			})
		}
	}
	return out, nil
}

// Execute calls one tool by its bare name, retrying once with a fresh
// session if the failure looks like a transport problem.
func (e *MCPExecutor) Execute(ctx context.Context, call Call) (Result, error) {
	serverID := e.resolveServer(call.Name)
	if serverID == "" {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("tool %q not found on any configured MCP server", call.Name), IsError: true}, nil
	}

	content, err := e.callOnce(ctx, serverID, call.Name, call.Arguments)
	if err != nil && classifyMCPError(err) == retryNewSession {
		e.mu.Lock()
		_, reconnErr := e.reconnectLocked(ctx, serverID)
		e.mu.Unlock()
		if reconnErr == nil {
			content, err = e.callOnce(ctx, serverID, call.Name, call.Arguments)
		}
	}
	if err != nil {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("MCP tool execution failed: %s", err), IsError: true}, nil
	}
	return Result{CallID: call.ID, Name: call.Name, Content: NormalizeResultContent(content)}, nil
}

func (e *MCPExecutor) callOnce(ctx context.Context, serverID, toolName string, args map[string]any) (string, error) {
	session, err := e.sessionFor(ctx, serverID)
	if err != nil {
		return "", err
	}

	opCtx, cancel := context.WithTimeout(ctx, mcpOperationTimeout)
	defer cancel()

	res, err := session.CallTool(opCtx, &mcpsdk.CallToolParams{Name: toolName, Arguments: args})
	if err != nil {
		return "", err
	}
	if res.IsError {
		return extractText(res), errors.New(extractText(res))
	}
	return extractText(res), nil
}

func (e *MCPExecutor) resolveServer(toolName string) string {
	for id, cfg := range e.servers {
		if len(cfg.ToolNames) == 0 || contains(cfg.ToolNames, toolName) {
			return id
		}
	}
	return ""
}

// Close tears down every live session.
func (e *MCPExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for id, s := range e.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close MCP session %q: %w", id, err)
		}
	}
	return firstErr
}

func extractText(res *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return nil
	}
	return m
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

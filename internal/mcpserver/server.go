// Package mcpserver exposes the toolkit as Model Context Protocol tools.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/entity"
	"web-testgen/internal/request"
	"web-testgen/internal/usecase"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Name            = "MCPServer"
	serverName      = "web-testgen"
	serverVersion   = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	mcp     *mcpserver.MCPServer
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewServer(params Params) *Server {
	s := &Server{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, Name)),
		usecase: params.Usecase,
		mcp:     mcpserver.NewMCPServer(serverName, serverVersion, mcpserver.WithToolCapabilities(false)),
	}

	s.registerTools()

	return s
}

// Serve runs the configured transport until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	switch s.config.ServerConfig.MCPTransport {
	case config.TransportStdio, "":
		s.logger.Info("MCP server on stdio")

		return mcpserver.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
	case config.TransportHTTP:
		return s.serveHTTP(ctx)
	default:
		return apperr.MalformedInputError("Serve", "MCP_TRANSPORT",
			fmt.Errorf("unsupported transport %q (use stdio or http)", s.config.ServerConfig.MCPTransport))
	}
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := s.config.ServerConfig.MCPAddr
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("MCP server listening", zap.String("addr", addr))
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("scan_page",
			mcp.WithDescription("Load a page and list its interactive elements with locators and state"),
			mcp.WithString("url", mcp.Description("Page URL (http, https or file)"), mcp.Required()),
		),
		s.handleScan,
	)

	s.mcp.AddTool(
		mcp.NewTool("synthesize_tests",
			mcp.WithDescription("Scan a page and synthesize a test document with one case per element behavior"),
			mcp.WithString("url", mcp.Description("Page URL (http, https or file)"), mcp.Required()),
			mcp.WithBoolean("save", mcp.Description("Persist the document in the store")),
		),
		s.handleSynthesize,
	)

	s.mcp.AddTool(
		mcp.NewTool("interact_element",
			mcp.WithDescription("Resolve one target, perform an action and report the observed effects"),
			mcp.WithString("url", mcp.Description("Load this page before acting")),
			mcp.WithObject("target", mcp.Description("Target with category, locators and state, as found in a test case"), mcp.Required()),
			mcp.WithString("action", mcp.Description("Action to perform"), mcp.Required(), mcp.Enum(actionNames()...)),
			mcp.WithString("input_value", mcp.Description("Text to type or option to select")),
		),
		s.handleInteract,
	)

	s.mcp.AddTool(
		mcp.NewTool("run_tests",
			mcp.WithDescription("Replay a test document against the live page. Pick the document by run_id, by url (latest stored) or inline"),
			mcp.WithString("run_id", mcp.Description("Stored document run id")),
			mcp.WithString("url", mcp.Description("Use the latest stored document for this URL")),
			mcp.WithObject("document", mcp.Description("Inline test document")),
			mcp.WithArray("test_ids", mcp.Description("Only run these cases"), mcp.Items(map[string]any{"type": "string"})),
		),
		s.handleRun,
	)
}

func (s *Server) handleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decodeArgs[request.Scan](req)
	if err != nil {
		return toolError(err), nil
	}

	return s.result(s.usecase.Pipeline.Scan(ctx, r.URL))
}

func (s *Server) handleSynthesize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decodeArgs[request.Synthesize](req)
	if err != nil {
		return toolError(err), nil
	}

	return s.result(s.usecase.Pipeline.Generate(ctx, r))
}

func (s *Server) handleInteract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decodeArgs[request.Interact](req)
	if err != nil {
		return toolError(err), nil
	}

	return s.result(s.usecase.Pipeline.Interact(ctx, r))
}

func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decodeArgs[request.Run](req)
	if err != nil {
		return toolError(err), nil
	}

	return s.result(s.usecase.Runner.Run(ctx, r))
}

// result renders a response as indented JSON text. Failures are reported in
// the tool result, not as protocol errors.
func (s *Server) result(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		s.logger.Warn("Tool call failed", zap.Error(err))

		return toolError(err), nil
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(b)), nil
}

// decodeArgs routes tool arguments through the strict request decoder so
// every surface validates the same way.
func decodeArgs[T request.Request](req mcp.CallToolRequest) (T, error) {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		var zero T

		return zero, apperr.MalformedInputError("decodeArgs", "arguments", err)
	}

	return request.Decode[T](bytes.NewReader(raw))
}

func actionNames() []string {
	actions := []entity.Action{
		entity.ActionClick,
		entity.ActionDoubleClick,
		entity.ActionRightClick,
		entity.ActionHover,
		entity.ActionInputText,
		entity.ActionCheck,
		entity.ActionUncheck,
		entity.ActionSelectByIndex,
		entity.ActionSelectByText,
	}

	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}

	return names
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", apperr.CodeOf(err), err))
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/internal/presentation/graph"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
	"github.com/aretw0/hfsm/pkg/ports"
	"github.com/aretw0/hfsm/pkg/session"
)

const graphURI = "hfsm://graph"

// StateResponse is returned by the state producing tools.
type StateResponse struct {
	MachineID string            `json:"machine_id,omitempty" jsonschema_description:"The machine the state belongs to, when stored"`
	State     domain.FSMState   `json:"state" jsonschema_description:"Active child of every entered graph node"`
	Diff      *domain.StateDiff `json:"diff,omitempty" jsonschema_description:"Changes made by the transition"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.Engine
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessions adds the fire_machine tool backed by m.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("hfsm-mcp", strings.TrimSpace(hfsm.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

const arrowsHelp = `Arrows to fire together, separated by ";". Each arrow lists its steps ` +
	`innermost first as "source/name" separated by ",", e.g. "app:home/open,app/open; ui:clock/tick"`

func (s *Server) registerTools() {
	// TOOL: initial_state
	s.mcpServer.AddTool(mcp.NewTool("initial_state",
		mcp.WithDescription("Return the configuration a new machine starts in."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleInitialState))

	// TOOL: transition
	s.mcpServer.AddTool(mcp.NewTool("transition",
		mcp.WithDescription("Fire arrows from a state and return the resulting state. Nothing is stored."),
		mcp.WithString("arrows", mcp.Required(), mcp.Description(arrowsHelp)),
		mcp.WithString("state", mcp.Description("JSON object mapping graph node ids to their active child (optional, defaults to the initial state)")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleTransition))

	// TOOL: fire_machine
	if s.sessions != nil {
		s.mcpServer.AddTool(mcp.NewTool("fire_machine",
			mcp.WithDescription("Fire arrows into a stored machine, starting it if needed, and persist the result."),
			mcp.WithString("machine_id", mcp.Required(), mcp.Description("Machine identifier")),
			mcp.WithString("arrows", mcp.Required(), mcp.Description(arrowsHelp)),
			mcp.WithOutputSchema[StateResponse](),
		), mcp.NewStructuredToolHandler(s.handleFireMachine))
	}

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full graph definition for introspection."),
		mcp.WithString("format", mcp.Description("json (default), mermaid or dot")),
	), s.handleGetGraph)
}

func (s *Server) handleInitialState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	state, err := s.engine.Initial(ctx)
	if err != nil {
		return StateResponse{}, fmt.Errorf("initial state failed: %w", err)
	}
	return StateResponse{State: state}, nil
}

func (s *Server) handleTransition(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	arrows, err := parseArrows(args["arrows"])
	if err != nil {
		return StateResponse{}, err
	}

	var current domain.FSMState
	if raw, ok := args["state"].(string); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return StateResponse{}, fmt.Errorf("state must be a JSON object: %w", err)
		}
	} else if current, err = s.engine.Initial(ctx); err != nil {
		return StateResponse{}, fmt.Errorf("initial state failed: %w", err)
	}

	next, err := s.engine.Transition(ctx, current, arrows...)
	if err != nil {
		s.logger.Warn("MCP Transition: rejected", "err", err)
		return StateResponse{}, fmt.Errorf("transition failed: %w", err)
	}
	diff := domain.Diff(current, next)
	return StateResponse{State: next, Diff: &diff}, nil
}

func (s *Server) handleFireMachine(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["machine_id"].(string)
	if id == "" {
		return StateResponse{}, errors.New("machine_id is required")
	}
	arrows, err := parseArrows(args["arrows"])
	if err != nil {
		return StateResponse{}, err
	}

	out, err := s.sessions.Fire(ctx, id, arrows...)
	if err != nil {
		s.logger.Warn("MCP Fire: rejected", "machine_id", id, "err", err)
		return StateResponse{}, fmt.Errorf("fire failed: %w", err)
	}
	return StateResponse{MachineID: id, State: out.State, Diff: &out.Diff}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, _ := request.GetArguments()["format"].(string)
	text, err := s.renderGraph(format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) renderGraph(format string) (string, error) {
	g := s.engine.Graph()
	if format == "" || format == "json" {
		jsonBytes, err := json.Marshal(dsl.Export(g))
		if err != nil {
			return "", fmt.Errorf("export failed: %w", err)
		}
		return string(jsonBytes), nil
	}
	return graph.Render(g, graph.Format(format), nil)
}

// parseArrows reads the ";"-separated arrow list of a tool call.
func parseArrows(v any) ([]domain.Arrow, error) {
	text, _ := v.(string)
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("arrows is required")
	}
	arrows, err := domain.ParseArrows(strings.Split(text, ";")...)
	if err != nil {
		return nil, fmt.Errorf("invalid arrows: %w", err)
	}
	return arrows, nil
}

func (s *Server) registerResources() {
	// EXPOSE: hfsm://graph
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.renderGraph("json")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

// Package mcp exposes conversation trees as Model Context Protocol tools, so
// an agent can branch a conversation the same way a person does on the canvas.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Service is what the MCP server needs from the backend.
type Service interface {
	Ask(ctx context.Context, conversationID string, req ports.AskRequest) (ports.AskResult, error)
	Tree(ctx context.Context, conversationID string) (*domain.Tree, error)
	Clear(ctx context.Context, conversationID string) error
	Layout(ctx context.Context, conversationID string) (domain.Positions, error)
	List(ctx context.Context) ([]string, error)
}

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	Question     string `json:"question"`
	ParentID     string `json:"parent_id,omitempty"`
	Conversation string `json:"conversation,omitempty"`
}

// ConversationArgs are the arguments of the read and clear tools.
type ConversationArgs struct {
	Conversation string `json:"conversation,omitempty"`
}

// AskResponse is the structured result of the ask tool.
type AskResponse struct {
	NodeID domain.NodeID `json:"node_id" jsonschema_description:"ID of the node that was created"`
	Answer string        `json:"answer" jsonschema_description:"Answer to the question"`
	Nodes  int           `json:"nodes" jsonschema_description:"Number of nodes now in the conversation"`
}

// LayoutResponse is the structured result of the get_layout tool.
type LayoutResponse struct {
	Positions domain.Positions `json:"positions" jsonschema_description:"Canvas coordinates by node id"`
}

// Server exposes a Service as an MCP Server.
type Server struct {
	service   Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(service Service, opts ...Option) *Server {
	s := &Server{
		service:   service,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func conversationParam() mcp.ToolOption {
	return mcp.WithString("conversation", mcp.Description("Conversation id (default: \"default\")"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask a question. Without parent_id it starts a new root; with parent_id it is a follow-up answered with that branch as context."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to ask")),
		mcp.WithString("parent_id", mcp.Description("Node to branch from (optional)")),
		conversationParam(),
		mcp.WithOutputSchema[AskResponse](),
	), mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get every node of the conversation tree."),
		conversationParam(),
	), mcp.NewTypedToolHandler(s.handleGetTree))

	s.mcpServer.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Get canvas coordinates for every drawable node."),
		conversationParam(),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetLayout))

	s.mcpServer.AddTool(mcp.NewTool("clear",
		mcp.WithDescription("Discard the whole conversation."),
		conversationParam(),
	), mcp.NewTypedToolHandler(s.handleClear))
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args AskArgs) (AskResponse, error) {
	res, err := s.service.Ask(ctx, args.Conversation, ports.AskRequest{
		Question: args.Question,
		ParentID: domain.NodeID(strings.TrimSpace(args.ParentID)),
	})
	if err != nil {
		s.logger.Warn("MCP ask failed", "err", err)
		return AskResponse{}, fmt.Errorf("ask failed: %w", err)
	}
	return AskResponse{NodeID: res.NodeID, Answer: res.Answer, Nodes: res.Tree.Len()}, nil
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest, args ConversationArgs) (*mcp.CallToolResult, error) {
	tree, err := s.service.Tree(ctx, args.Conversation)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_tree failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(tree)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetLayout(ctx context.Context, request mcp.CallToolRequest, args ConversationArgs) (LayoutResponse, error) {
	pos, err := s.service.Layout(ctx, args.Conversation)
	if err != nil {
		return LayoutResponse{}, fmt.Errorf("get_layout failed: %w", err)
	}
	return LayoutResponse{Positions: pos}, nil
}

func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest, args ConversationArgs) (*mcp.CallToolResult, error) {
	if err := s.service.Clear(ctx, args.Conversation); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("clear failed: %v", err)), nil
	}
	return mcp.NewToolResultText("cleared"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("arbor://conversations", "Stored conversations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.service.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://conversations",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

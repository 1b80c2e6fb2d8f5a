package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	return NewServer(backend.New(session.NewManager(memory.NewStore()), nil))
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestTools_AskBranchAndRead(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	root, err := s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Question: "root?", Conversation: "agent"})
	require.NoError(t, err)
	assert.Equal(t, 1, root.Nodes)
	assert.Equal(t, "You asked: root?", root.Answer)

	child, err := s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Question: "why?", ParentID: string(root.NodeID), Conversation: "agent"})
	require.NoError(t, err)
	assert.Equal(t, 2, child.Nodes)

	res, err := s.handleGetTree(ctx, mcp.CallToolRequest{}, ConversationArgs{Conversation: "agent"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	tree := domain.NewTree()
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), tree))
	assert.Equal(t, 2, tree.Len())

	layout, err := s.handleGetLayout(ctx, mcp.CallToolRequest{}, ConversationArgs{Conversation: "agent"})
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 400, Y: 200}, layout.Positions[child.NodeID])

	res, err = s.handleClear(ctx, mcp.CallToolRequest{}, ConversationArgs{Conversation: "agent"})
	require.NoError(t, err)
	assert.Equal(t, "cleared", textOf(t, res))

	layout, err = s.handleGetLayout(ctx, mcp.CallToolRequest{}, ConversationArgs{Conversation: "agent"})
	require.NoError(t, err)
	assert.Empty(t, layout.Positions)
}

func TestTools_AskErrors(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Question: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)

	_, err = s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Question: "q", ParentID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestServer_ListsTools(t *testing.T) {
	s := newTestServer()
	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, name := range []string{`"ask"`, `"get_tree"`, `"get_layout"`, `"clear"`} {
		assert.Contains(t, string(raw), name)
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/testutils"
	"github.com/aretw0/hfsm/pkg/adapters/memory"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/session"
)

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t))
	require.NoError(t, err)
	return NewServer(eng, opts...)
}

func TestInitialState(t *testing.T) {
	s := newServer(t)
	resp, err := s.handleInitialState(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.FSMState{"app": "app:home", "app:settings": "app:settings:audio"}, resp.State)
}

func TestTransition(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	resp, err := s.handleTransition(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"arrows": "app:home/open",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("app:settings"), resp.State["app"])
	require.NotNil(t, resp.Diff)
	assert.Contains(t, resp.Diff.Changed, domain.NodeID("app"))

	state, _ := json.Marshal(resp.State)
	resp, err = s.handleTransition(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"state":  string(state),
		"arrows": "app:settings:audio/next; app:settings/close",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FSMState{"app": "app:home", "app:settings": "app:settings:video"}, resp.State)
}

func TestTransition_Errors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	tests := map[string]map[string]interface{}{
		"missing arrows": {},
		"bad arrow":      {"arrows": "nope"},
		"bad state":      {"arrows": "app:home/open", "state": "[1]"},
		"no arrow":       {"arrows": "app:home/fly"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.handleTransition(ctx, mcp.CallToolRequest{}, args)
			assert.Error(t, err)
		})
	}

	_, err := s.handleTransition(ctx, mcp.CallToolRequest{}, map[string]interface{}{"arrows": "app:home/fly"})
	assert.ErrorIs(t, err, domain.ErrNoArrowFound)
}

func TestFireMachine(t *testing.T) {
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t))
	require.NoError(t, err)
	store := memory.NewStore()
	s := NewServer(eng, WithSessions(session.NewManager(eng, store)))
	ctx := context.Background()

	resp, err := s.handleFireMachine(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"machine_id": "m1",
		"arrows":     "app:home/open",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", resp.MachineID)

	stored, err := store.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("app:settings"), stored["app"])

	_, err = s.handleFireMachine(ctx, mcp.CallToolRequest{}, map[string]interface{}{"arrows": "app:home/open"})
	assert.ErrorContains(t, err, "machine_id is required")
}

func TestGetGraph(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	call := func(format string) *mcp.CallToolResult {
		req := mcp.CallToolRequest{}
		req.Params.Name = "get_graph"
		req.Params.Arguments = map[string]any{"format": format}
		res, err := s.handleGetGraph(ctx, req)
		require.NoError(t, err)
		return res
	}

	res := call("")
	require.False(t, res.IsError)
	text := res.Content[0].(mcp.TextContent).Text
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Equal(t, "app", doc["root"])

	res = call("mermaid")
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "graph TD")

	res = call("svg")
	assert.True(t, res.IsError)
}

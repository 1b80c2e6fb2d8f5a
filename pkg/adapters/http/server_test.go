package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend() *backend.Service {
	n := 0
	return backend.New(session.NewManager(memory.NewStore()), nil,
		backend.WithIDGenerator(func() domain.NodeID {
			n++
			return domain.NodeID(fmt.Sprintf("n%d", n))
		}),
	)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_AskTreeClear(t *testing.T) {
	h := arborhttp.NewHandler(newBackend())

	rec := do(t, h, http.MethodPost, "/api/ask", `{"question":"What is X?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		NodeID string       `json:"node_id"`
		Answer string       `json:"answer"`
		Tree   *domain.Tree `json:"tree"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "n1", res.NodeID)
	assert.Equal(t, "You asked: What is X?", res.Answer)
	assert.Equal(t, 1, res.Tree.Len())

	rec = do(t, h, http.MethodPost, "/api/ask", `{"question":"more","parent_id":"n1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tree", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tree := domain.NewTree()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), tree))
	child, ok := tree.Get("n2")
	require.True(t, ok)
	assert.Equal(t, domain.NodeID("n1"), child.ParentID)

	rec = do(t, h, http.MethodGet, "/api/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"positions":{"n1":{"x":400,"y":50},"n2":{"x":400,"y":200}}}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/tree", "")
	assert.JSONEq(t, `{"nodes":{}}`, rec.Body.String())
}

func TestServer_ConversationParam(t *testing.T) {
	h := arborhttp.NewHandler(newBackend())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/ask?conversation=a", `{"question":"q"}`).Code)

	rec := do(t, h, http.MethodGet, "/api/tree?conversation=b", "")
	assert.JSONEq(t, `{"nodes":{}}`, rec.Body.String())
	rec = do(t, h, http.MethodGet, "/api/tree", "")
	assert.JSONEq(t, `{"nodes":{}}`, rec.Body.String())
}

func TestServer_Errors(t *testing.T) {
	h := arborhttp.NewHandler(newBackend())

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{`, http.StatusBadRequest, arborhttp.CodeInvalidRequest},
		{"blank question", `{"question":"   "}`, http.StatusBadRequest, arborhttp.CodeEmptyQuestion},
		{"too long", `{"question":"` + strings.Repeat("x", 16385) + `"}`, http.StatusBadRequest, arborhttp.CodeInvalidRequest},
		{"unknown parent", `{"question":"q","parent_id":"ghost"}`, http.StatusNotFound, arborhttp.CodeNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/ask", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var er arborhttp.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
			assert.Equal(t, tt.code, er.Code)
			assert.NotEmpty(t, er.Error)
		})
	}
}

func TestServer_InfoHealthSpec(t *testing.T) {
	h := arborhttp.NewHandler(newBackend())

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/info", "")
	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "arbor-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])

	rec = do(t, h, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/ask")

	doc, err := arborhttp.Spec()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/layout"))
}

func TestServer_CORS(t *testing.T) {
	h := arborhttp.NewHandler(newBackend(), arborhttp.WithAllowedOrigins("http://localhost:3000"))

	req := httptest.NewRequest(http.MethodOptions, "/api/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	h := arborhttp.NewHandler(newBackend(), arborhttp.WithMetrics(m, "/metrics"))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/ask", `{"question":"q"}`).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `arbor_tree_nodes{conversation="default"} 1`)
	assert.Contains(t, body, `arbor_http_requests_total{code="200",method="POST",route="/api/ask"} 1`)
}

func TestServer_EventsStreamTreeSnapshots(t *testing.T) {
	svc := newBackend()
	srv := arborhttp.NewServer(svc)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?conversation=live", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return srv.Streams.Subscribers("live") == 1 }, time.Second, 10*time.Millisecond)
	_, err = svc.Ask(ctx, "live", portsAsk("hello"))
	require.NoError(t, err)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: tree") {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"question":"hello"`)
}

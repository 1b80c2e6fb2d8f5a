package cli_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ServesMetrics(t *testing.T) {
	rt := newRuntime(t, testConfig())
	srv := httptest.NewServer(rt.Handler())
	defer srv.Close()

	target, err := rt.Target(cli.TargetOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = cli.Ask(context.Background(), target, "", "measured?", &bytes.Buffer{})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `arbor_asks_total{outcome="ok"} 1`)
}

func TestServe_RemoteRoundTripAndShutdown(t *testing.T) {
	rt := newRuntime(t, testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cli.Serve(ctx, rt, ln) }()

	target, err := rt.Target(cli.TargetOptions{
		BaseURL:      "http://" + ln.Addr().String(),
		Conversation: "remote",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	root, err := cli.Ask(context.Background(), target, "", "over the wire", &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "You asked: over the wire")

	local, err := rt.Target(cli.TargetOptions{Local: true, Conversation: "remote"})
	require.NoError(t, err)
	tree, err := local.Tree(context.Background())
	require.NoError(t, err)
	_, ok := tree.Get(root)
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenAndServe_BadAddr(t *testing.T) {
	rt := newRuntime(t, testConfig())
	err := cli.ListenAndServe(context.Background(), rt, "256.0.0.1:bad")
	assert.ErrorContains(t, err, "failed to listen")
}

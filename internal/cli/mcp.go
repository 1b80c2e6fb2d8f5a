package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/arbor/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// RunMCP serves the backend as MCP tools until ctx is done (SSE) or stdin
// closes (stdio).
func RunMCP(ctx context.Context, rt *Runtime, transport, addr, baseURL string) error {
	srv := mcp.NewServer(rt.Engine.Service(), mcp.WithLogger(rt.Logger))

	switch transport {
	case TransportStdio:
		rt.Logger.Info("Starting Arbor MCP Server (Stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		rt.Logger.Info("Starting Arbor MCP Server (SSE)", "addr", addr)
		if err := srv.ServeSSE(ctx, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		rt.Logger.Info("MCP Server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport %q (supported: %s, %s)", transport, TransportStdio, TransportSSE)
	}
}

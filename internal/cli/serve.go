package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
)

// shutdownGrace bounds how long in-flight requests may take after a stop.
const shutdownGrace = 5 * time.Second

// Handler builds the HTTP collaborator for the runtime's backend.
func (rt *Runtime) Handler() http.Handler {
	opts := []arborhttp.Option{
		arborhttp.WithLogger(rt.Logger),
		arborhttp.WithAllowedOrigins(rt.Config.Server.CORSOrigins...),
	}
	if rt.Metrics != nil {
		opts = append(opts, arborhttp.WithMetrics(rt.Metrics, rt.Config.Metrics.Path))
	}
	return arborhttp.NewHandler(rt.Engine.Service(), opts...)
}

// Serve runs the HTTP collaborator on ln until ctx is done, then drains
// in-flight requests.
func Serve(ctx context.Context, rt *Runtime, ln net.Listener) error {
	srv := &http.Server{
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		rt.Logger.Info("Arbor server listening", "addr", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		rt.Logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownGrace, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		rt.Logger.Info("Arbor server stopped")
		return nil
	}
}

// ListenAndServe is Serve on a TCP listener bound to addr.
func ListenAndServe(ctx context.Context, rt *Runtime, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, rt, ln)
}

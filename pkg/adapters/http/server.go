// Package http exposes the collaborator over HTTP and provides a client
// that implements ports.Collaborator against that API.
package http

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
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

// ConversationParam selects the conversation on every route.
const ConversationParam = "conversation"

// maxBodyBytes caps request bodies; questions are capped lower by validation.
const maxBodyBytes = 1 << 20

// Service is what the server needs from the backend.
type Service interface {
	Ask(ctx context.Context, conversationID string, req ports.AskRequest) (ports.AskResult, error)
	Tree(ctx context.Context, conversationID string) (*domain.Tree, error)
	Clear(ctx context.Context, conversationID string) error
	Layout(ctx context.Context, conversationID string) (domain.Positions, error)
}

// changeSource is implemented by services that publish committed changes.
type changeSource interface {
	OnChange(fn backend.ChangeFunc)
}

// Server serves the collaborator API.
type Server struct {
	Service Service
	Streams *StreamManager

	logger      *slog.Logger
	metrics     *observability.Metrics
	metricsPath string
	origins     []string
	validate    *validator.Validate
	heartbeat   time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics instruments every route and serves m at path.
func WithMetrics(m *observability.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithAllowedOrigins restricts CORS; the default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// NewServer creates a Server. If svc publishes changes they are streamed to
// /events subscribers and, when metrics are enabled, recorded as tree sizes.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		Service:     svc,
		logger:      logging.NewNop(),
		metricsPath: "/metrics",
		origins:     []string{"*"},
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		heartbeat:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	if src, ok := svc.(changeSource); ok {
		src.OnChange(s.publish)
	}
	return s
}

// NewHandler is NewServer(svc, opts...).Handler().
func NewHandler(svc Service, opts ...Option) http.Handler {
	return NewServer(svc, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/tree", s.GetTree)
		r.Post("/clear", s.Clear)
		r.Get("/layout", s.GetLayout)
	})
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}
	return r
}

func conversationOf(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get(ConversationParam)); id != "" {
		return id
	}
	return backend.DefaultConversation
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == CodeInvalidRequest {
		msg = formatValidationError(err)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	} else {
		s.logger.Warn(op+" rejected", "err", err, "status", status)
	}
	_ = writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func (s *Server) respond(w http.ResponseWriter, op string, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		s.logger.Error(op+" response encode failed", "err", err)
	}
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var body ports.AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		_ = writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: CodeInvalidRequest})
		s.logger.Warn("Ask: Invalid request body", "err", err)
		return
	}
	body.Question = strings.TrimSpace(body.Question)
	body.ParentID = domain.NodeID(strings.TrimSpace(string(body.ParentID)))
	if body.Question == "" {
		s.fail(w, r, "Ask", domain.ErrEmptyQuestion)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.fail(w, r, "Ask", err)
		return
	}

	res, err := s.Service.Ask(r.Context(), conversationOf(r), body)
	if err != nil {
		s.fail(w, r, "Ask", err)
		return
	}
	s.respond(w, "Ask", res)
}

// GetTree handles GET /api/tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Service.Tree(r.Context(), conversationOf(r))
	if err != nil {
		s.fail(w, r, "GetTree", err)
		return
	}
	s.respond(w, "GetTree", tree)
}

// Clear handles POST /api/clear.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Clear(r.Context(), conversationOf(r)); err != nil {
		s.fail(w, r, "Clear", err)
		return
	}
	s.respond(w, "Clear", map[string]bool{"success": true})
}

// LayoutResponse is the body of GET /api/layout.
type LayoutResponse struct {
	Positions domain.Positions `json:"positions"`
}

// GetLayout handles GET /api/layout.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	pos, err := s.Service.Layout(r.Context(), conversationOf(r))
	if err != nil {
		s.fail(w, r, "GetLayout", err)
		return
	}
	s.respond(w, "GetLayout", LayoutResponse{Positions: pos})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, "GetHealth", map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.respond(w, "GetInfo", map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(arbor.Version),
		"api_version": apiVersion,
	})
}

func (s *Server) publish(conversationID string, tree *domain.Tree) {
	if s.metrics != nil {
		s.metrics.ObserveTree(conversationID, tree.Len())
	}
	data, err := json.Marshal(tree)
	if err != nil {
		s.logger.Error("SSE: failed to encode tree", "err", err)
		return
	}
	s.Streams.Broadcast(conversationID, string(data))
}

// SubscribeEvents handles GET /events. Each change to the conversation is
// sent as a "tree" event carrying the full snapshot.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	conversationID := conversationOf(r)
	ch, cancel := s.Streams.Subscribe(conversationID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: Subscribed", "conversation", conversationID)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "conversation", conversationID)
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: tree\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

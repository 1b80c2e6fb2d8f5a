package arbor

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/conversation"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// Version is the release of this module. Builds may override it with
// -ldflags "-X github.com/aretw0/arbor.Version=...".
var Version = "0.1.0"

// Engine is the high-level entry point for the Arbor library.
// It wires a conversation backend to its storage and answerer and hands out
// canvas controllers bound to it.
type Engine struct {
	store    ports.TreeStore
	answerer ports.Answerer
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	hooks    domain.LifecycleHooks
	svcHooks domain.LifecycleHooks
	logger   *slog.Logger
	onChange []backend.ChangeFunc

	sessions *session.Manager
	service  *backend.Service
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore persists conversations in s instead of process memory.
func WithStore(s ports.TreeStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithAnswerer sets who produces answers. The default echoes the question.
func WithAnswerer(a ports.Answerer) Option {
	return func(e *Engine) {
		e.answerer = a
	}
}

// WithLocker serialises conversation updates across processes.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks on every controller
// created by the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithServiceHooks registers observability hooks on the backend itself, so
// asks and clears arriving from any surface (HTTP, MCP) are reported.
func WithServiceHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.svcHooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOnChange registers a callback run after every ask or clear.
func WithOnChange(fn backend.ChangeFunc) Option {
	return func(e *Engine) {
		e.onChange = append(e.onChange, fn)
	}
}

// New initializes an Engine. Without options it keeps conversations in
// memory and answers with backend.Echo.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.answerer == nil {
		e.answerer = backend.Echo{}
	}

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
		if e.lockTTL > 0 {
			sessOpts = append(sessOpts, session.WithLockTTL(e.lockTTL))
		}
	}
	e.sessions = session.NewManager(e.store, sessOpts...)

	e.service = backend.New(e.sessions, e.answerer,
		backend.WithLogger(e.logger),
		backend.WithLifecycleHooks(e.svcHooks),
	)
	for _, fn := range e.onChange {
		e.service.OnChange(fn)
	}
	return e
}

// Service returns the conversation backend.
func (e *Engine) Service() *backend.Service { return e.service }

// Sessions returns the lock-aware session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// Controller returns a canvas controller for one conversation of the
// in-process backend. Extra options are applied after the engine's own.
func (e *Engine) Controller(conversationID string, opts ...conversation.Option) *conversation.Controller {
	base := []conversation.Option{
		conversation.WithLogger(e.logger),
		conversation.WithLifecycleHooks(e.hooks),
	}
	return conversation.New(e.service.Conversation(conversationID), append(base, opts...)...)
}

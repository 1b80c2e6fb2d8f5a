package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/google/uuid"
)

// DefaultConversation is used when a caller names no conversation.
const DefaultConversation = "default"

// ChangeFunc observes every committed tree change.
type ChangeFunc func(conversationID string, tree *domain.Tree)

// Service answers questions and maintains conversation trees.
type Service struct {
	sessions *session.Manager
	answerer ports.Answerer
	logger   *slog.Logger
	newID    func() domain.NodeID
	hooks    domain.LifecycleHooks

	mu       sync.RWMutex
	watchers []ChangeFunc

	// epochs counts clears per conversation; an ask answered across a
	// clear is not committed. Only clears seen by this process count.
	epochMu sync.Mutex
	epochs  map[string]uint64
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the uuid node id generator.
func WithIDGenerator(fn func() domain.NodeID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithLifecycleHooks reports asks and clears handled by the service.
// OnLayout is never called; layout happens on the client.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithOnChange registers an observer, see OnChange.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *Service) {
		s.watchers = append(s.watchers, fn)
	}
}

// New creates a Service. A nil answerer falls back to Echo.
func New(sessions *session.Manager, answerer ports.Answerer, opts ...Option) *Service {
	if answerer == nil {
		answerer = Echo{}
	}
	s := &Service{
		sessions: sessions,
		answerer: answerer,
		logger:   logging.NewNop(),
		newID:    func() domain.NodeID { return domain.NodeID(uuid.NewString()) },
		epochs:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers an observer called after every committed ask or clear.
// Observers run synchronously and receive a tree they may keep.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

func (s *Service) epoch(conversationID string) uint64 {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	return s.epochs[conversationID]
}

func (s *Service) bumpEpoch(conversationID string) {
	s.epochMu.Lock()
	s.epochs[conversationID]++
	s.epochMu.Unlock()
}

func (s *Service) notify(conversationID string, tree *domain.Tree) {
	s.mu.RLock()
	watchers := s.watchers
	s.mu.RUnlock()
	for _, fn := range watchers {
		fn(conversationID, tree.Clone())
	}
}

// Ask answers req.Question and appends it to the conversation under
// req.ParentID, or as a new root.
func (s *Service) Ask(ctx context.Context, conversationID string, req ports.AskRequest) (ports.AskResult, error) {
	start := time.Now()
	if s.hooks.OnAskStart != nil {
		s.hooks.OnAskStart(ctx, &domain.AskEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventAskStart},
			ParentID:  req.ParentID,
		})
	}
	res, err := s.ask(ctx, normalize(conversationID), req)
	if s.hooks.OnAskFinish != nil {
		s.hooks.OnAskFinish(ctx, &domain.AskEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAskFinish},
			ParentID:  req.ParentID,
			NodeID:    res.NodeID,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return res, err
}

func (s *Service) ask(ctx context.Context, conversationID string, req ports.AskRequest) (ports.AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return ports.AskResult{}, domain.ErrEmptyQuestion
	}

	epoch := s.epoch(conversationID)
	current, err := s.sessions.Load(ctx, conversationID)
	if err != nil {
		return ports.AskResult{}, err
	}
	history, err := contextChain(current, req.ParentID)
	if err != nil {
		return ports.AskResult{}, err
	}

	s.logger.Debug("Answering", "conversation", conversationID, "parent_id", req.ParentID, "context", len(history))
	answer, err := s.answerer.Answer(ctx, question, history)
	if err != nil {
		return ports.AskResult{}, fmt.Errorf("answerer failed: %w", err)
	}

	id := s.newID()
	tree, err := s.sessions.Update(ctx, conversationID, func(tree *domain.Tree) error {
		if s.epoch(conversationID) != epoch {
			return domain.ErrAskSuperseded
		}
		// The parent may have been cleared while we were answering.
		if !req.ParentID.IsRoot() && !tree.Has(req.ParentID) {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, req.ParentID)
		}
		tree.Add(domain.Node{
			ID:       id,
			ParentID: req.ParentID,
			Question: question,
			Answer:   answer,
			Seq:      tree.NextSeq(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAskSuperseded) {
			s.logger.Info("Answer dropped after clear", "conversation", conversationID, "parent_id", req.ParentID)
		}
		return ports.AskResult{}, err
	}

	s.logger.Info("Node added", "conversation", conversationID, "node_id", id, "parent_id", req.ParentID, "nodes", tree.Len())
	s.notify(conversationID, tree)
	return ports.AskResult{NodeID: id, Answer: answer, Tree: tree}, nil
}

// Tree returns the current snapshot; unknown conversations are empty.
func (s *Service) Tree(ctx context.Context, conversationID string) (*domain.Tree, error) {
	return s.sessions.Load(ctx, normalize(conversationID))
}

// Layout returns fresh positions for the current snapshot.
func (s *Service) Layout(ctx context.Context, conversationID string) (domain.Positions, error) {
	tree, err := s.Tree(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return layout.Layout(tree, nil), nil
}

// Clear discards the conversation. Clearing an unknown conversation succeeds.
// Asks still being answered are superseded and add nothing.
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	conversationID = normalize(conversationID)
	// Bumped before the delete so no answer can be committed in between.
	s.bumpEpoch(conversationID)
	err := s.sessions.Delete(ctx, conversationID)
	if err != nil {
		err = fmt.Errorf("failed to clear conversation: %w", err)
	}
	if s.hooks.OnClear != nil {
		s.hooks.OnClear(ctx, &domain.ClearEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventClear},
			Err:       err,
		})
	}
	if err != nil {
		return err
	}
	s.logger.Info("Conversation cleared", "conversation", conversationID)
	s.notify(conversationID, domain.NewTree())
	return nil
}

// List returns the known conversation ids.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// Conversation binds the service to one conversation id, yielding a
// ports.Collaborator for in-process clients.
func (s *Service) Conversation(conversationID string) *Conversation {
	return &Conversation{service: s, id: normalize(conversationID)}
}

// contextChain returns the exchanges from the root down to parentID, each as
// a user message followed by an assistant message.
func contextChain(tree *domain.Tree, parentID domain.NodeID) ([]ports.Message, error) {
	if parentID.IsRoot() {
		return nil, nil
	}
	if !tree.Has(parentID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, parentID)
	}
	chain := domain.NewIndex(tree).Ancestry(parentID)
	if chain == nil {
		return nil, fmt.Errorf("%w: %s is not reachable from a root", domain.ErrNodeNotFound, parentID)
	}

	history := make([]ports.Message, 0, 2*len(chain))
	for _, n := range chain {
		history = append(history,
			ports.Message{Role: ports.RoleUser, Content: n.Question},
			ports.Message{Role: ports.RoleAssistant, Content: n.Answer},
		)
	}
	return history, nil
}

func normalize(conversationID string) string {
	if id := strings.TrimSpace(conversationID); id != "" {
		return id
	}
	return DefaultConversation
}

// Conversation is a Service scoped to one conversation id.
// It implements ports.Collaborator and ports.TreeSource.
type Conversation struct {
	service *Service
	id      string
}

var (
	_ ports.Collaborator = (*Conversation)(nil)
	_ ports.TreeSource   = (*Conversation)(nil)
)

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// Ask implements ports.Collaborator.
func (c *Conversation) Ask(ctx context.Context, req ports.AskRequest) (ports.AskResult, error) {
	return c.service.Ask(ctx, c.id, req)
}

// Clear implements ports.Collaborator.
func (c *Conversation) Clear(ctx context.Context) error {
	return c.service.Clear(ctx, c.id)
}

// Tree implements ports.TreeSource.
func (c *Conversation) Tree(ctx context.Context) (*domain.Tree, error) {
	return c.service.Tree(ctx, c.id)
}

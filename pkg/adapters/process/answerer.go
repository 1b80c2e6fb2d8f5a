// Package process answers questions by running a configured external command.
//
// The command receives {"question": ..., "context": [{"role", "content"}...]}
// as JSON on stdin and must print the answer on stdout. Only commands declared
// in configuration are ever run; nothing from the request reaches argv.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultTimeout bounds a single answer when the config sets none.
const DefaultTimeout = 2 * time.Minute

// ErrEmptyAnswer is returned when the command succeeds but prints nothing.
var ErrEmptyAnswer = errors.New("answerer produced no output")

// Request is the document written to the command's stdin.
type Request struct {
	Question string          `json:"question"`
	Context  []ports.Message `json:"context"`
}

// Answerer implements ports.Answerer over an external process.
type Answerer struct {
	cfg     Config
	baseDir string
	logger  *slog.Logger
}

var _ ports.Answerer = (*Answerer)(nil)

// Option configures the Answerer.
type Option func(*Answerer)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(a *Answerer) {
		a.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) {
		a.logger = logger
	}
}

// New creates an Answerer for cfg.
func New(cfg Config, opts ...Option) (*Answerer, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("answerer %q has no command", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	a := &Answerer{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer implements ports.Answerer.
func (a *Answerer) Answer(ctx context.Context, question string, history []ports.Message) (string, error) {
	if history == nil {
		history = []ports.Message{}
	}
	payload, err := json.Marshal(Request{Question: question, Context: history})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.cfg.Command, a.cfg.Args...)
	cmd.Dir = a.baseDir
	cmd.Stdin = bytes.NewReader(payload)

	env := cmd.Environ()
	for k, v := range a.cfg.Environment {
		env = append(env, k+"="+v)
	}
	env = append(env, "ARBOR_DEPTH="+strconv.Itoa(len(history)/2))
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	a.logger.Debug("Answerer process finished",
		"name", a.cfg.Name,
		"duration", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"err", err,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("answerer %q: %w", a.cfg.Name, ctx.Err())
		}
		return "", fmt.Errorf("answerer %q failed: %w. Stderr: %s", a.cfg.Name, err, strings.TrimSpace(stderr.String()))
	}

	answer := strings.TrimSpace(stdout.String())
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

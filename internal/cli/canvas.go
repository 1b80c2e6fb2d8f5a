package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/conversation"
	"github.com/aretw0/arbor/pkg/observability"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrNotInteractive is returned when the canvas is started without a terminal.
var ErrNotInteractive = errors.New("the canvas needs an interactive terminal")

// RunCanvas opens the terminal canvas on the conversation selected by opts
// and blocks until the user quits or ctx is done.
func RunCanvas(ctx context.Context, rt *Runtime, opts TargetOptions) error {
	if !IsTerminal(os.Stdin) || !IsTerminal(os.Stdout) {
		return ErrNotInteractive
	}

	target, err := rt.Target(opts)
	if err != nil {
		return err
	}

	ctrlOpts := []conversation.Option{
		conversation.WithLogger(rt.Logger),
		conversation.WithLifecycleHooks(observability.LoggingHooks(rt.Logger)),
	}
	ctrl := conversation.New(target, ctrlOpts...)

	modelOpts := []tui.Option{tui.WithTitle(fmt.Sprintf("arbor · %s", conversationName(opts)))}
	if w, ok := target.(Watcher); ok {
		updates, err := w.Watch(ctx)
		if err != nil {
			rt.Logger.Warn("Live updates unavailable", "err", err)
		} else {
			modelOpts = append(modelOpts, tui.WithUpdates(updates))
		}
	}

	p := tea.NewProgram(
		tui.NewModel(ctx, ctrl, modelOpts...),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("canvas: %w", err)
	}
	return nil
}

func conversationName(opts TargetOptions) string {
	if opts.Conversation == "" {
		return "default"
	}
	return opts.Conversation
}

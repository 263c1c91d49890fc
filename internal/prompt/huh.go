package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"gitsmart/internal/logging"
	"gitsmart/internal/theme"
)

// Choice is a labelled option in a select or multi-select
type Choice struct {
	Label string
	Value string
}

// Prompter shows huh forms through a Bridge so they can be interrupted.
// When stdin is not a terminal, or a modal form fails, it falls back to
// huh's accessible mode which reads plain lines.
type Prompter struct {
	accessible bool
	bridge     *Bridge
	logger     *slog.Logger
	theme      *huh.Theme
}

// NewPrompter creates a prompter bound to bridge
func NewPrompter(bridge *Bridge, logger *slog.Logger) *Prompter {
	return &Prompter{
		accessible: !term.IsTerminal(int(os.Stdin.Fd())),
		bridge:     bridge,
		logger:     logging.OrDiscard(logger),
		theme:      theme.Form(),
	}
}

// Select asks for one of choices
func (p *Prompter) Select(ctx context.Context, title string, choices []Choice, initial string) (Outcome[string], error) {
	options := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		options = append(options, huh.NewOption(c.Label, c.Value))
	}

	return Run(ctx, p.bridge, func(ctx context.Context) (string, error) {
		selected := initial
		err := p.run(ctx, func() huh.Field {
			return huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&selected)
		})
		return selected, err
	})
}

// MultiSelect asks for any subset of choices
func (p *Prompter) MultiSelect(ctx context.Context, title string, choices []Choice) (Outcome[[]string], error) {
	options := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		options = append(options, huh.NewOption(c.Label, c.Value))
	}

	return Run(ctx, p.bridge, func(ctx context.Context) ([]string, error) {
		var selected []string
		err := p.run(ctx, func() huh.Field {
			return huh.NewMultiSelect[string]().
				Title(title).
				Description("space to toggle, enter to confirm").
				Options(options...).
				Value(&selected)
		})
		return selected, err
	})
}

// Input asks for a single line of text
func (p *Prompter) Input(ctx context.Context, title, initial string) (Outcome[string], error) {
	return Run(ctx, p.bridge, func(ctx context.Context) (string, error) {
		value := initial
		err := p.run(ctx, func() huh.Field {
			return huh.NewInput().
				Title(title).
				Value(&value)
		})
		return value, err
	})
}

// Text asks for multi-line text, pre-filled with initial
func (p *Prompter) Text(ctx context.Context, title, initial string) (Outcome[string], error) {
	return Run(ctx, p.bridge, func(ctx context.Context) (string, error) {
		value := initial
		err := p.run(ctx, func() huh.Field {
			return huh.NewText().
				Title(title).
				Lines(10).
				Value(&value).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("message required")
					}
					return nil
				})
		})
		return value, err
	})
}

// Confirm asks a yes/no question
func (p *Prompter) Confirm(ctx context.Context, title string, initial bool) (Outcome[bool], error) {
	return Run(ctx, p.bridge, func(ctx context.Context) (bool, error) {
		value := initial
		err := p.run(ctx, func() huh.Field {
			return huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&value)
		})
		return value, err
	})
}

// run shows a single-field form. huh reports both Ctrl+C and a cancelled
// context as ErrUserAborted; Run tells them apart by the context cause.
func (p *Prompter) run(ctx context.Context, field func() huh.Field) error {
	err := p.form(field(), p.accessible).RunWithContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrUserCancelled
	}
	if ctx.Err() != nil || p.accessible {
		return p.terminalError(ctx, err)
	}

	p.logger.Warn("Modal prompt failed, falling back to accessible mode", "error", err)
	err = p.form(field(), true).RunWithContext(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, huh.ErrUserAborted):
		return ErrUserCancelled
	default:
		return p.terminalError(ctx, err)
	}
}

func (p *Prompter) form(field huh.Field, accessible bool) *huh.Form {
	return huh.NewForm(huh.NewGroup(field)).
		WithTheme(p.theme).
		WithShowHelp(true).
		WithAccessible(accessible)
}

func (p *Prompter) terminalError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTerminal, err)
}

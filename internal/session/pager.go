package session

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"gitsmart/internal/prompt"
	"gitsmart/internal/theme"
)

// TeaPager shows long text in a scrollable full-screen viewport. Without a
// terminal it prints the text instead.
type TeaPager struct {
	in          io.Reader
	interactive bool
	out         io.Writer
}

// NewTeaPager creates a pager reading keys from in and drawing to out
func NewTeaPager(in io.Reader, out io.Writer, interactive bool) *TeaPager {
	return &TeaPager{
		in:          in,
		interactive: interactive,
		out:         out,
	}
}

// Show blocks until the user leaves the pager or ctx is cancelled
func (p *TeaPager) Show(ctx context.Context, title, content string) error {
	body := highlightDiff(content)
	if !p.interactive {
		fmt.Fprintln(p.out, theme.PagerTitleStyle.Render(title))
		fmt.Fprintln(p.out, body)
		return nil
	}

	program := tea.NewProgram(
		newPagerModel(title, body),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(pagerModel); ok && m.cancelled {
		return prompt.ErrUserCancelled
	}
	return nil
}

type pagerModel struct {
	cancelled bool
	content   string
	ready     bool
	title     string
	viewport  viewport.Model
}

func newPagerModel(title, content string) pagerModel {
	return pagerModel{
		content: content,
		title:   title,
	}
}

func (m pagerModel) Init() tea.Cmd {
	return nil
}

func (m pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "q", "esc", "enter":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		// Title and footer take one line each
		height := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	footer := fmt.Sprintf("%3.f%%  ↑/↓ scroll · q back · ctrl+c cancel", m.viewport.ScrollPercent()*100)
	return theme.PagerTitleStyle.Render(m.title) + "\n" +
		m.viewport.View() + "\n" +
		theme.PagerFooterStyle.Render(footer)
}

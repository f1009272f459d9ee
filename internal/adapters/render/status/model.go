package status

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/crew/internal/application"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type layout int

const (
	// layoutOverview draws the title, the counts and every session.
	layoutOverview layout = iota
	// layoutSessions draws only the session blocks.
	layoutSessions
)

// sessionsLoadedMsg carries the session statuses produced by the pending
// request, or the error that stopped it.
type sessionsLoadedMsg struct {
	statuses []application.SessionStatus
	err      error
}

// model waits on one session request, showing a spinner when it has a
// label, then renders the statuses the request produced.
type model struct {
	spinner spinner.Model
	label   string
	load    tea.Cmd
	layout  layout
	opts    RenderOptions
	styles  styles

	statuses []application.SessionStatus
	err      error
	output   string
	done     bool
}

func newModel(label string, load tea.Cmd, l layout, opts RenderOptions) model {
	st := newStyles()
	return model{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(st.spinner)),
		label:   label,
		load:    load,
		layout:  l,
		opts:    opts,
		styles:  st,
	}
}

func (m model) Init() tea.Cmd {
	if m.label == "" {
		return m.load
	}
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionsLoadedMsg:
		m.done = true
		m.statuses = msg.statuses
		m.err = msg.err
		if msg.err == nil {
			m.output = m.render()
		}
		return m, tea.Quit
	default:
		return m, nil
	}
}

// View shows the pending request. The rendered statuses are read from the
// final model so the spinner line is cleared on exit.
func (m model) View() string {
	if m.done || m.label == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

func (m model) render() string {
	if m.layout == layoutOverview {
		return renderView(m.statuses, m.opts, m.styles)
	}

	blocks := make([]string, 0, len(m.statuses))
	for _, status := range m.statuses {
		blocks = append(blocks, renderSession(status, m.opts, m.styles))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Render draws the overview of statuses.
func Render(statuses []application.SessionStatus, opts RenderOptions) (string, error) {
	load := func() tea.Msg {
		return sessionsLoadedMsg{statuses: statuses}
	}
	return run(context.Background(), io.Discard, newModel("", load, layoutOverview, opts))
}

// Track shows label with a spinner on progress while request runs, then
// renders the session blocks request returns. A request error is returned
// as is.
func Track(
	ctx context.Context,
	progress io.Writer,
	label string,
	opts RenderOptions,
	request func(context.Context) ([]application.SessionStatus, error),
) (string, error) {
	load := func() tea.Msg {
		statuses, err := request(ctx)
		return sessionsLoadedMsg{statuses: statuses, err: err}
	}
	return run(ctx, progress, newModel(label, load, layoutSessions, opts))
}

func run(ctx context.Context, output io.Writer, m model) (string, error) {
	p := tea.NewProgram(
		m,
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	result, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	return result.output, result.err
}

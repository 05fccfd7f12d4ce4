package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

type (
	doneMsg struct {
		details []string
		err     error
	}
	tickMsg time.Time
)

// progressModel runs one action and shows elapsed time until it returns.
// ctrl+c cancels the action's context and waits for it to unwind.
type progressModel struct {
	title   string
	ctx     context.Context
	cancel  context.CancelFunc
	action  func(context.Context) ([]string, error)
	started time.Time
	elapsed time.Duration
	frame   int

	details []string
	err     error
	done    bool
}

func newProgressModel(ctx context.Context, cancel context.CancelFunc, title string, action func(context.Context) ([]string, error)) progressModel {
	return progressModel{title: title, ctx: ctx, cancel: cancel, action: action, started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m progressModel) Init() tea.Cmd {
	run := func() tea.Msg {
		details, err := m.action(m.ctx)
		return doneMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Time(msg).Sub(m.started)
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.details, m.err, m.done = msg.details, msg.err, true
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n")
	if !m.done {
		status := "running"
		if m.ctx.Err() != nil {
			status = "cancelling"
		}
		fmt.Fprintf(&b, "%s %s %s\n", spinnerFrames[m.frame], status, hintStyle.Render(m.elapsed.Round(100*time.Millisecond).String()))
		return b.String()
	}
	if m.err != nil {
		fmt.Fprintf(&b, "%s %v\n", failStyle.Render("FAILED"), m.err)
	} else {
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), hintStyle.Render(m.elapsed.Round(time.Millisecond).String()))
	}
	for _, d := range m.details {
		b.WriteString("  " + d + "\n")
	}
	return b.String()
}

// Run shows a progress view while action runs under timeout, then prints
// its details.
func Run(title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	final, err := tea.NewProgram(newProgressModel(ctx, cancel, title, action)).Run()
	if err != nil {
		return nil, err
	}
	res := final.(progressModel)
	return res.details, res.err
}

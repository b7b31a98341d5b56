package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const refreshInterval = 250 * time.Millisecond

type interactiveModel struct {
	ctx     context.Context
	session *session
	status  string
	table   table.Model
	checks  map[string]string
	rounds  int
	busy    bool
}

type roundDoneMsg struct{}

type refreshMsg time.Time

func newInteractiveModel(ctx context.Context, s *session) *interactiveModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Method", Width: 28},
			{Title: "Tier", Width: 12},
			{Title: "Outcome", Width: 10},
			{Title: "Calls", Width: 8},
			{Title: "Arity", Width: 6},
			{Title: "Check", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(min(len(s.targets)+1, 15)),
	)

	m := &interactiveModel{ctx: ctx, session: s, table: t, checks: make(map[string]string)}
	m.refresh(false)
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *interactiveModel) runRound() tea.Msg {
	m.session.round(m.ctx)
	return roundDoneMsg{}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "running round..."
			return m, m.runRound
		case "c":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.session.targets) {
				return m, nil
			}
			t := m.session.targets[idx]
			if m.session.dispatcher.Submit(t.method, t.class) {
				m.status = "submitted " + t.method.QualifiedName()
			} else {
				m.status = "not submitted " + t.method.QualifiedName()
			}
			return m, nil
		}

	case roundDoneMsg:
		m.busy = false
		m.rounds++
		m.status = fmt.Sprintf("round %d done", m.rounds)
		m.refresh(true)
		return m, nil

	case refreshMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		m.refresh(false)
		return m, tick()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh rebuilds the table. Checks are only replayed after a round and
// kept between refreshes.
func (m *interactiveModel) refresh(check bool) {
	rows := m.session.rows(m.ctx, check)
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		if check {
			m.checks[r.name] = r.checks
		} else if c, ok := m.checks[r.name]; ok {
			r.checks = c
		}
		out = append(out, table.Row{r.name, r.tier, r.outcome, fmt.Sprint(r.calls), r.arity, r.checks})
	}
	m.table.SetRows(out)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tierup"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	counts := m.session.compiler.Counts()
	stats := m.session.dispatcher.Stats()
	b.WriteString(statusStyle.Render(fmt.Sprintf("compiled %d  failed %d  in flight %d  dropped %d",
		counts.Successes(), counts.Failures(), stats.InFlight, stats.Dropped)))
	b.WriteString("\n")

	if errs := m.session.results.errors(); len(errs) > 0 {
		b.WriteString(errorStyle.Render(errs[len(errs)-1]))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • r run round • c compile now • q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, s *session) error {
	p := tea.NewProgram(newInteractiveModel(ctx, s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

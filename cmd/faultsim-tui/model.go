package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

const (
	maxEvents      = 20
	viewportHeight = 12
	fetchTimeout   = 2 * time.Second
)

var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	eventTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	eventTypeStyle = lipgloss.NewStyle().Width(24).Bold(true)
	eventNSStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	componentStyle = lipgloss.NewStyle().Width(24)
)

// Daemon is the subset of the faultsim client the dashboard polls.
type Daemon interface {
	Namespaces(ctx context.Context) ([]string, error)
	GetTopology(ctx context.Context, namespace string) (simulation.TopologyResponse, error)
	LatestResult(ctx context.Context, namespace string) (simulation.SimulateResponse, bool, error)
	GetEvents(ctx context.Context, opts client.EventsOptions) ([]client.Event, error)
}

type tickMsg time.Time

type dataMsg struct {
	namespaces []string
	namespace  string
	topology   simulation.TopologyResponse
	latest     *simulation.SimulateResponse
	events     []client.Event
	err        error
}

type model struct {
	daemon   Daemon
	interval time.Duration

	spinner  spinner.Model
	viewport viewport.Model

	namespaces []string
	namespace  string
	topology   simulation.TopologyResponse
	latest     *simulation.SimulateResponse
	events     []client.Event
	err        error
	ready      bool
}

func newModel(d Daemon, namespace string, interval time.Duration) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		daemon:    d,
		interval:  interval,
		spinner:   s,
		viewport:  newViewport(100),
		namespace: namespace,
	}
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.namespace = m.nextNamespace()
			return m, m.fetch()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, m.fetch(), m.tick())

	case dataMsg:
		m.ready = true
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.err = nil
		m.namespaces = msg.namespaces
		// Ignore a response for a namespace the user has since tabbed away from.
		if msg.namespace == m.namespace || m.namespace == "" {
			m.namespace = msg.namespace
			m.topology = msg.topology
			m.latest = msg.latest
		}
		m.events = msg.events
		m.viewport.SetContent(renderEvents(m.events))

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

func (m model) nextNamespace() string {
	if len(m.namespaces) == 0 {
		return m.namespace
	}
	for i, ns := range m.namespaces {
		if ns == m.namespace {
			return m.namespaces[(i+1)%len(m.namespaces)]
		}
	}
	return m.namespaces[0]
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting...", m.spinner.View())
	}

	topPane := paneStyle.Render(m.renderNamespace())
	header := headerStyle.Render(fmt.Sprintf("%s Activity", m.spinner.View()))

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d namespaces • %d events", len(m.namespaces), len(m.events)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\ntab next namespace • q quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, m.viewport.View(), footer)
}

func (m model) renderNamespace() string {
	var sb strings.Builder
	if m.namespace == "" {
		sb.WriteString(titleStyle.Render("No namespaces") + "\n\n")
		sb.WriteString(subtleStyle.Render("Design a component to get started."))
		return sb.String()
	}

	sb.WriteString(titleStyle.Render("Namespace "+m.namespace) + "\n\n")
	t := m.topology
	sb.WriteString(fmt.Sprintf("%d components • %d edges", t.ComponentCount, t.EdgeCount))
	if len(t.RedundancyGroups) > 0 {
		sb.WriteString(" • groups: " + strings.Join(t.RedundancyGroups, ", "))
	}
	sb.WriteString("\n")

	if m.latest == nil {
		sb.WriteString(subtleStyle.Render("No simulation yet."))
		return sb.String()
	}

	h := m.latest.HealthMetrics
	sb.WriteString(fmt.Sprintf("Last %s %s: health %s\n",
		m.latest.SimulationType,
		subtleStyle.Render(m.latest.CompletedAt.Local().Format("15:04:05")),
		healthStyle(h.SystemHealthScore).Render(fmt.Sprintf("%.2f", h.SystemHealthScore)),
	))
	if len(h.RedundancyGroupsAtRisk) > 0 {
		sb.WriteString(warnStyle.Render("At risk: "+strings.Join(h.RedundancyGroupsAtRisk, ", ")) + "\n")
	}
	sb.WriteString("\n")
	for _, cs := range m.latest.ComponentStates {
		if cs.State == graph.StateOperational {
			continue
		}
		line := componentStyle.Render(cs.ComponentID) + stateStyle(cs.State).Render(string(cs.State))
		if m.latest.SimulationType == simulation.TypeMonteCarlo {
			line += subtleStyle.Render(fmt.Sprintf("  p=%.3f", cs.FailureProbability))
		}
		sb.WriteString(line + "\n")
	}
	if h.FailedComponents == 0 && h.DegradedComponents == 0 {
		sb.WriteString(okStyle.Render("All components operational."))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderEvents(events []client.Event) string {
	var sb strings.Builder
	for _, e := range events {
		var typeStr string
		switch {
		case strings.HasSuffix(e.EventType, "_failed"):
			typeStr = errorStyle.Render(e.EventType)
		case strings.HasPrefix(e.EventType, "simulation"):
			typeStr = okStyle.Render(e.EventType)
		default:
			typeStr = e.EventType
		}
		subject := e.Dimensions.ComponentID
		if subject == "" {
			subject = e.Dimensions.SimulationID
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n",
			eventTimeStyle.Render(e.TsEvent.Local().Format("15:04:05")),
			eventTypeStyle.Render(typeStr),
			eventNSStyle.Render(e.Dimensions.Namespace),
			subject,
		)
	}
	return sb.String()
}

func healthStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.9:
		return okStyle
	case score >= 0.5:
		return warnStyle
	default:
		return errorStyle
	}
}

func stateStyle(s graph.State) lipgloss.Style {
	switch s {
	case graph.StateFailed:
		return errorStyle
	case graph.StateDegraded:
		return warnStyle
	default:
		return subtleStyle
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Cmd {
	d, want := m.daemon, m.namespace
	return func() tea.Msg {
		return fetchData(d, want)
	}
}

func fetchData(d Daemon, namespace string) dataMsg {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	names, err := d.Namespaces(ctx)
	if err != nil {
		return dataMsg{err: err}
	}
	msg := dataMsg{namespaces: names, namespace: namespace}
	if msg.namespace == "" && len(names) > 0 {
		msg.namespace = names[0]
	}

	if contains(names, msg.namespace) {
		if msg.topology, err = d.GetTopology(ctx, msg.namespace); err != nil {
			return dataMsg{err: err}
		}
		latest, found, err := d.LatestResult(ctx, msg.namespace)
		if err != nil {
			return dataMsg{err: err}
		}
		if found {
			msg.latest = &latest
		}
	}

	// The event log is optional on the daemon; its absence is not an outage.
	events, err := d.GetEvents(ctx, client.EventsOptions{Limit: maxEvents})
	if err == nil {
		msg.events = events
	}
	return msg
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

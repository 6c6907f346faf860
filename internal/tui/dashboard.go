package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-bridge/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const dashRefresh = 5 * time.Second

// Dashboard message types.
type healthMsg Health
type healthErrMsg struct{ err error }
type pendingMsg struct {
	order domain.Order
	ok    bool
}
type pendingErrMsg struct{ err error }
type dashTickMsg time.Time

// DashboardModel shows bridge liveness and the order waiting for the terminal.
type DashboardModel struct {
	services   Services
	health     Health
	healthErr  error
	pending    *domain.Order
	pendingErr error
	loading    bool
	checkedAt  time.Time
	width      int
	height     int
}

func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{services: svc, loading: true}
}

// Init fires initial data fetch commands.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchHealthCmd(), m.fetchPendingCmd(), m.tickCmd())
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case healthMsg:
		m.health = Health(msg)
		m.healthErr = nil
		m.loading = false
		m.checkedAt = time.Now()
		return m, nil

	case healthErrMsg:
		m.health = Health{}
		m.healthErr = msg.err
		m.loading = false
		m.checkedAt = time.Now()
		return m, nil

	case pendingMsg:
		m.pendingErr = nil
		m.pending = nil
		if msg.ok {
			order := msg.order
			m.pending = &order
		}
		return m, nil

	case pendingErrMsg:
		m.pendingErr = msg.err
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(m.fetchHealthCmd(), m.fetchPendingCmd(), m.tickCmd())

	case tea.KeyMsg:
		if msg.String() == "R" {
			return m, tea.Batch(m.fetchHealthCmd(), m.fetchPendingCmd())
		}
	}
	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading {
		return SubtextStyle.Render("Connecting to " + m.services.Endpoint + "...")
	}
	width := m.width - 2
	if width < 40 {
		width = 40
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		BorderStyle.Width(width).Render(m.renderHealth()),
		BorderStyle.Width(width).Render(m.renderPending()),
	)
}

func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Pending returns the last seen pending order (for testing).
func (m DashboardModel) Pending() *domain.Order { return m.pending }

func (m DashboardModel) renderHealth() string {
	lines := []string{HeaderStyle.Render("  Bridge")}
	switch {
	case m.healthErr != nil:
		lines = append(lines, "  "+OfflineStyle.Render("OFFLINE")+"  "+ErrorStyle.Render(m.healthErr.Error()))
	case m.health.OK:
		lines = append(lines, "  "+OnlineStyle.Render("ONLINE")+"  "+m.health.Service)
	default:
		lines = append(lines, "  "+OfflineStyle.Render("UNHEALTHY"))
	}
	lines = append(lines, SubtextStyle.Render(fmt.Sprintf("  %s  checked %s", m.services.Endpoint, m.checkedAt.Format(time.TimeOnly))))
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderPending() string {
	lines := []string{HeaderStyle.Render("  Pending Order")}
	switch {
	case m.pendingErr != nil:
		lines = append(lines, "  "+ErrorStyle.Render(m.pendingErr.Error()))
	case m.pending == nil:
		lines = append(lines, SubtextStyle.Render("  Mailbox empty"))
	default:
		lines = append(lines, "  "+FormatOrder(*m.pending))
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchHealthCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Bridge == nil {
			return healthErrMsg{err: errNoClient}
		}
		h, err := m.services.Bridge.Health(context.Background())
		if err != nil {
			return healthErrMsg{err: err}
		}
		return healthMsg(h)
	}
}

func (m DashboardModel) fetchPendingCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Bridge == nil {
			return pendingErrMsg{err: errNoClient}
		}
		order, ok, err := m.services.Bridge.PendingOrder(context.Background())
		if err != nil {
			return pendingErrMsg{err: err}
		}
		return pendingMsg{order: order, ok: ok}
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(dashRefresh, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

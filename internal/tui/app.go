package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errNoClient = errors.New("bridge client not configured")

// Tab represents a screen tab in the TUI.
type Tab int

const (
	TabDashboard Tab = iota
	TabLicense
)

var tabNames = []string{"1:Dashboard", "2:License"}

// AppModel is the root Bubble Tea model that manages tab navigation and child screens.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	license   LicenseModel
	width     int
	height    int
	quitting  bool
}

func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		activeTab: TabDashboard,
		dashboard: NewDashboardModel(svc),
		license:   NewLicenseModel(svc),
	}
}

// Init initializes all child models.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.license.Init())
}

// Update handles incoming messages, routing to the active tab.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.propagateSize()
		return m, nil

	case tea.KeyMsg:
		// The license tab owns printable keys while its input is focused.
		typing := m.activeTab == TabLicense && msg.Type == tea.KeyRunes
		switch {
		case msg.String() == "ctrl+c", !typing && key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, DefaultKeyMap.Tab):
			m.switchTab(Tab((int(m.activeTab) + 1) % len(tabNames)))
			return m, nil

		case key.Matches(msg, DefaultKeyMap.ShiftTab):
			next := int(m.activeTab) - 1
			if next < 0 {
				next = len(tabNames) - 1
			}
			m.switchTab(Tab(next))
			return m, nil

		case !typing && msg.String() == "1":
			m.switchTab(TabDashboard)
			return m, nil
		case !typing && msg.String() == "2":
			m.switchTab(TabLicense)
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case healthMsg, healthErrMsg, pendingMsg, pendingErrMsg, dashTickMsg:
		m.dashboard, cmd = m.dashboard.Update(msg)

	case licenseResultMsg, licenseErrMsg:
		m.license, cmd = m.license.Update(msg)

	default:
		switch m.activeTab {
		case TabDashboard:
			m.dashboard, cmd = m.dashboard.Update(msg)
		case TabLicense:
			m.license, cmd = m.license.Update(msg)
		}
	}
	return m, cmd
}

// View renders the tab bar and active screen.
func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch m.activeTab {
	case TabDashboard:
		content = m.dashboard.View()
	case TabLicense:
		content = m.license.View()
	}
	help := SubtextStyle.Render("  tab switch  R refresh  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabBar(), content, help)
}

func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.propagateSize()
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) switchTab(tab Tab) {
	if tab == TabLicense && m.activeTab != TabLicense {
		m.license.Focus()
	} else if m.activeTab == TabLicense && tab != TabLicense {
		m.license.Blur()
	}
	m.activeTab = tab
}

func (m *AppModel) propagateSize() {
	contentHeight := m.height - 3 // tab bar and help line
	m.dashboard.SetSize(m.width, contentHeight)
	m.license.SetSize(m.width, contentHeight)
}

func (m AppModel) renderTabBar() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == m.activeTab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

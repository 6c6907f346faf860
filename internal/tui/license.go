package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// License lookup message types.
type licenseResultMsg struct {
	key    string
	status LicenseStatus
}
type licenseErrMsg struct{ err error }

// LicenseModel looks up one license key at a time.
type LicenseModel struct {
	services Services
	input    textinput.Model
	spinner  spinner.Model
	waiting  bool
	key      string
	result   *LicenseStatus
	err      error
	width    int
	height   int
}

func NewLicenseModel(svc Services) LicenseModel {
	ti := textinput.New()
	ti.Placeholder = "Paste a license key and press enter"
	ti.CharLimit = 64
	ti.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)

	return LicenseModel{services: svc, input: ti, spinner: sp}
}

func (m LicenseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LicenseModel) Update(msg tea.Msg) (LicenseModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case licenseResultMsg:
		status := msg.status
		m.key = msg.key
		m.result = &status
		m.waiting = false
		m.err = nil
		return m, nil

	case licenseErrMsg:
		m.waiting = false
		m.result = nil
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.waiting {
			key := strings.TrimSpace(m.input.Value())
			if key != "" {
				m.waiting = true
				return m, tea.Batch(m.lookupCmd(key), m.spinner.Tick)
			}
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m LicenseModel) View() string {
	sections := []string{
		"",
		HeaderStyle.Render("  License Lookup"),
		"",
		"  " + m.input.View(),
		"",
	}
	switch {
	case m.waiting:
		sections = append(sections, "  "+m.spinner.View()+" checking...")
	case m.err != nil:
		sections = append(sections, "  "+ErrorStyle.Render(m.err.Error()))
	case m.result != nil:
		sections = append(sections, FormatLicense(m.key, *m.result, time.Now()))
	default:
		sections = append(sections, SubtextStyle.Render("  No lookup yet"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *LicenseModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if w > 10 {
		m.input.Width = w - 10
	}
}

func (m *LicenseModel) Focus() { m.input.Focus() }

func (m *LicenseModel) Blur() { m.input.Blur() }

// Result returns the last lookup (for testing).
func (m LicenseModel) Result() *LicenseStatus { return m.result }

func (m LicenseModel) lookupCmd(key string) tea.Cmd {
	return func() tea.Msg {
		if m.services.Licenses == nil {
			return licenseErrMsg{err: errNoClient}
		}
		status, err := m.services.Licenses.CheckLicense(context.Background(), key)
		if err != nil {
			return licenseErrMsg{err: err}
		}
		return licenseResultMsg{key: key, status: status}
	}
}

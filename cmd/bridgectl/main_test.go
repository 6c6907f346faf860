package main

import (
	"testing"

	"signal-bridge/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func TestBridgeURL(t *testing.T) {
	cases := []struct {
		raw, port, want string
	}{
		{"", "", "http://localhost:8080"},
		{"", ":9090", "http://localhost:9090"},
		{"https://bridge.example.com/", "9090", "https://bridge.example.com"},
	}
	for _, tc := range cases {
		if got := bridgeURL(tc.raw, tc.port); got != tc.want {
			t.Fatalf("bridgeURL(%q, %q): expected %s, got %s", tc.raw, tc.port, tc.want, got)
		}
	}
}

func TestMainRunsProgram(t *testing.T) {
	origLoadEnv, origRun := loadEnvFunc, runProgram
	defer func() { loadEnvFunc, runProgram = origLoadEnv, origRun }()

	t.Setenv("BRIDGE_URL", "http://bridge.test")
	loadEnvFunc = func(...string) error { return nil }
	var got tea.Model
	runProgram = func(m tea.Model) error {
		got = m
		return nil
	}

	main()

	app, ok := got.(tui.AppModel)
	if !ok {
		t.Fatalf("expected tui.AppModel, got %T", got)
	}
	if app.ActiveTab() != tui.TabDashboard {
		t.Fatalf("expected dashboard first, got %d", app.ActiveTab())
	}
}

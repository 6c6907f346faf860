package main

import (
	"log"
	"os"
	"strings"
	"time"

	"signal-bridge/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

var (
	loadEnvFunc = godotenv.Load
	runProgram  = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
)

// bridgectl is a terminal dashboard for a running bridge.
func main() {
	_ = loadEnvFunc()

	endpoint := bridgeURL(os.Getenv("BRIDGE_URL"), os.Getenv("PORT"))
	client := tui.NewClient(endpoint, 5*time.Second)

	app := tui.NewAppModel(tui.Services{
		Bridge:   client,
		Licenses: client,
		Endpoint: endpoint,
	})
	if err := runProgram(app); err != nil {
		log.Fatalf("bridgectl: %v", err)
	}
}

func bridgeURL(raw, port string) string {
	if u := strings.TrimSpace(raw); u != "" {
		return strings.TrimRight(u, "/")
	}
	port = strings.TrimPrefix(strings.TrimSpace(port), ":")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"
)

func TestParseAlertMode(t *testing.T) {
	cases := map[string]alertMode{
		"":       alertsStatus,
		"on":     alertsOn,
		"OFF":    alertsOff,
		"status": alertsStatus,
	}
	for arg, want := range cases {
		var args []string
		if arg != "" {
			args = []string{arg}
		}
		mode, err := parseAlertMode(args)
		if err != nil || mode != want {
			t.Fatalf("parseAlertMode(%q) = %v, %v", arg, mode, err)
		}
	}
	if _, err := parseAlertMode([]string{"nope"}); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestSetAlertsReportsChanges(t *testing.T) {
	n := NewNotifier(&fakeSender{}, 0, time.Second)

	if !n.SetAlerts(10, true) || n.SetAlerts(10, true) {
		t.Fatal("expected only the first opt-in to change state")
	}
	if !n.AlertsEnabled(10) {
		t.Fatal("expected alerts on")
	}
	if !n.SetAlerts(10, false) || n.SetAlerts(10, false) {
		t.Fatal("expected only the first opt-out to change state")
	}
	if n.AlertsEnabled(10) || len(n.recipients()) != 0 {
		t.Fatal("expected no recipients after opt-out")
	}
}

func TestNotifierSendsToChannelAndOptedInChats(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, -100, time.Second)
	n.SetAlerts(10, true)
	n.SetAlerts(-100, true)

	if err := n.Notify(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("unexpected notify error: %v", err)
	}
	if sender.count(-100) != 1 || sender.count(10) != 1 {
		t.Fatalf("expected one message per recipient, got %+v", sender.messages)
	}
	if sender.modes[-100] != tele.ModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", sender.modes[-100])
	}
}

func TestNotifierWithoutRecipients(t *testing.T) {
	sender := &fakeSender{}
	if err := NewNotifier(sender, 0, time.Second).Notify(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatalf("expected no sends, got %+v", sender.messages)
	}
}

func TestNotifierNilIsNoop(t *testing.T) {
	var n *Notifier
	if err := n.Notify(context.Background(), "x"); err != nil {
		t.Fatalf("nil notifier should be a no-op, got %v", err)
	}
}

func TestNotifierJoinsFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]bool{20: true}}
	n := NewNotifier(sender, 10, time.Second)
	n.SetAlerts(20, true)

	err := n.Notify(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat 20") {
		t.Fatalf("expected failure for chat 20, got %v", err)
	}
	if sender.count(10) != 1 {
		t.Fatal("channel should still receive the message")
	}
}

func TestNotifierDeadlineCoversWholeFanOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sender := &fakeSender{block: release}
	n := NewNotifier(sender, 1, 50*time.Millisecond)
	for chatID := int64(2); chatID <= 5; chatID++ {
		n.SetAlerts(chatID, true)
	}

	start := time.Now()
	err := n.Notify(context.Background(), "x")
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("fan-out took %s, expected one deadline for all chats", elapsed)
	}
	for chatID := int64(1); chatID <= 5; chatID++ {
		if !strings.Contains(err.Error(), fmt.Sprintf("chat %d", chatID)) {
			t.Fatalf("expected chat %d in error, got %v", chatID, err)
		}
	}
}

type fakeSender struct {
	mu       sync.Mutex
	messages map[int64][]string
	modes    map[int64]tele.ParseMode
	failFor  map[int64]bool
	block    chan struct{}
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.block != nil {
		<-f.block
	}
	chat, ok := to.(*tele.Chat)
	if !ok {
		return nil, errors.New("unexpected recipient")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[int64][]string)
		f.modes = make(map[int64]tele.ParseMode)
	}
	if f.failFor[chat.ID] {
		return nil, errors.New("blocked")
	}
	text, _ := what.(string)
	f.messages[chat.ID] = append(f.messages[chat.ID], text)
	for _, opt := range opts {
		if mode, ok := opt.(tele.ParseMode); ok {
			f.modes[chat.ID] = mode
		}
	}
	return &tele.Message{}, nil
}

func (f *fakeSender) count(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[chatID])
}

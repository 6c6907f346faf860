package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier fans HTML messages out to the channel chat and to every chat that
// opted in with /alerts on. One deadline covers the whole fan-out.
type Notifier struct {
	sender    messageSender
	channelID int64
	timeout   time.Duration

	mu      sync.RWMutex
	optedIn map[int64]bool
}

func NewNotifier(sender messageSender, channelID int64, timeout time.Duration) *Notifier {
	return &Notifier{
		sender:    sender,
		channelID: channelID,
		timeout:   timeout,
		optedIn:   make(map[int64]bool),
	}
}

// SetAlerts turns trade alerts on or off for a chat and reports whether
// that changed anything.
func (n *Notifier) SetAlerts(chatID int64, on bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.optedIn[chatID] == on {
		return false
	}
	if on {
		n.optedIn[chatID] = true
	} else {
		delete(n.optedIn, chatID)
	}
	return true
}

func (n *Notifier) AlertsEnabled(chatID int64) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.optedIn[chatID]
}

type delivery struct {
	chatID int64
	err    error
}

// Notify sends text to every recipient concurrently and waits until all
// sends finish or the deadline passes. Failed and unfinished chats are
// reported in one error.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n == nil || n.sender == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	chats := n.recipients()
	if len(chats) == 0 {
		return nil
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	results := make(chan delivery, len(chats))
	for _, chatID := range chats {
		go func(chatID int64) {
			_, err := n.sender.Send(&tele.Chat{ID: chatID}, text, tele.ModeHTML)
			results <- delivery{chatID: chatID, err: err}
		}(chatID)
	}

	pending := make(map[int64]bool, len(chats))
	for _, chatID := range chats {
		pending[chatID] = true
	}
	var errs []error
	for len(pending) > 0 {
		select {
		case d := <-results:
			delete(pending, d.chatID)
			if d.err != nil {
				errs = append(errs, fmt.Errorf("chat %d: %w", d.chatID, d.err))
			}
		case <-ctx.Done():
			for _, chatID := range sortedChats(pending) {
				errs = append(errs, fmt.Errorf("chat %d: %w", chatID, ctx.Err()))
			}
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) recipients() []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	set := make(map[int64]bool, len(n.optedIn)+1)
	for chatID := range n.optedIn {
		set[chatID] = true
	}
	if n.channelID != 0 {
		set[n.channelID] = true
	}
	return sortedChats(set)
}

func sortedChats(set map[int64]bool) []int64 {
	chats := make([]int64, 0, len(set))
	for chatID := range set {
		chats = append(chats, chatID)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats
}

type alertMode int

const (
	alertsStatus alertMode = iota
	alertsOn
	alertsOff
)

func parseAlertMode(args []string) (alertMode, error) {
	if len(args) == 0 {
		return alertsStatus, nil
	}
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return alertsOn, nil
	case "off":
		return alertsOff, nil
	case "status":
		return alertsStatus, nil
	}
	return alertsStatus, fmt.Errorf("unknown alerts mode %q", args[0])
}

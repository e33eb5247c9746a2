// Package status carries human-readable progress messages from background
// work to whoever displays them. Nobody has to listen.
package status

import (
	"context"
	"time"

	"github.com/dmitrijs2005/passvault/internal/broadcast"
)

type Severity int

const (
	Info Severity = iota
	Success
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

type Message struct {
	Text     string
	Severity Severity
	At       time.Time
}

// Notifier is the sink the sync code reports to.
type Notifier interface {
	Notify(text string, severity Severity)
}

// Bus is a Notifier whose messages can be observed.
type Bus struct {
	hub *broadcast.Hub[Message]
	now func() time.Time
}

func NewBus() *Bus {
	return &Bus{hub: broadcast.New[Message](), now: time.Now}
}

// Notify never blocks.
func (b *Bus) Notify(text string, severity Severity) {
	b.hub.Publish(Message{Text: text, Severity: severity, At: b.now()})
}

func (b *Bus) Latest() (Message, bool) {
	return b.hub.Latest()
}

func (b *Bus) Subscribe(ctx context.Context) <-chan Message {
	return b.hub.Subscribe(ctx)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(string, Severity) {}

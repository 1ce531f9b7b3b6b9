package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/session"
)

// sender is the part of *tea.Program the bridge uses.
type sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session callbacks to a running program. The session calls
// it from Update as well as from background goroutines, so callbacks only
// queue the message; a single goroutine delivers the queue in order.
type Bridge struct {
	mu    sync.Mutex
	out   sender
	queue []tea.Msg
	wake  chan struct{}
	done  chan struct{}

	wg sync.WaitGroup
}

var _ session.Notifier = (*Bridge)(nil)

// NewBridge creates a bridge with no program attached. Messages are dropped
// until Attach is called.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts forwarding to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p)
}

func (b *Bridge) attach(s sender) {
	b.Detach()

	b.mu.Lock()
	b.out = s
	b.wake = make(chan struct{}, 1)
	b.done = make(chan struct{})
	wake, done := b.wake, b.done
	b.mu.Unlock()

	b.wg.Add(1)
	go b.pump(s, wake, done)
}

// Detach stops forwarding and waits for the delivery goroutine to exit.
// Queued messages are dropped.
func (b *Bridge) Detach() {
	b.mu.Lock()
	done := b.done
	b.out, b.queue, b.wake, b.done = nil, nil, nil, nil
	b.mu.Unlock()

	if done != nil {
		close(done)
	}
	b.wg.Wait()
}

// Notify implements session.Notifier.
func (b *Bridge) Notify(n session.Notification) {
	b.send(NotificationMsg{Notification: n})
}

// Changed is registered with session.WithOnChange. The model reads the
// current state itself, so the snapshot is not forwarded.
func (b *Bridge) Changed(session.SessionState) {
	b.send(StateChangedMsg{})
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.out == nil {
		return
	}
	b.queue = append(b.queue, msg)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) pump(s sender, wake, done <-chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-wake:
		}

		b.mu.Lock()
		msgs := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, msg := range msgs {
			s.Send(msg)
		}
	}
}

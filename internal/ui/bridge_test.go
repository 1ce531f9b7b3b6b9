package ui

import (
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nhath/ezspanner/internal/session"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) received() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestBridgeWithoutProgram(t *testing.T) {
	b := NewBridge()
	assert.NotPanics(t, func() {
		b.Notify(session.SuccessNotification("ok"))
		b.Changed(session.SessionState{})
	})
	b.Detach()
}

func TestBridgeDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recordingSender{}
	b := NewBridge()
	b.attach(rec)

	const n = 50
	for i := 0; i < n; i++ {
		b.Changed(session.SessionState{})
		b.Notify(session.SuccessNotification(fmt.Sprintf("note %d", i)))
	}

	require.Eventually(t, func() bool { return len(rec.received()) == 2*n }, time.Second, 5*time.Millisecond)
	b.Detach()

	msgs := rec.received()
	for i := 0; i < n; i++ {
		assert.Equal(t, StateChangedMsg{}, msgs[2*i])
		note, ok := msgs[2*i+1].(NotificationMsg)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("note %d", i), note.Notification.Message)
	}
}

func TestBridgeDetachDropsMessages(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recordingSender{}
	b := NewBridge()
	b.attach(rec)
	b.Detach()

	b.Notify(session.SuccessNotification("late"))
	assert.Empty(t, rec.received())
}

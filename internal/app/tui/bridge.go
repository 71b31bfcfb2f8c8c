package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkrupp/fintrack/internal/app/session"
)

const bridgeBuffer = 16

type (
	stateMsg struct {
		state session.State
	}

	navigateMsg struct {
		path string
	}

	noticeMsg struct {
		notice session.Notice
	}
)

// bridge carries messages from store goroutines into the program.
// A send blocks until the program takes the message or the bridge is closed.
type bridge struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newBridge() *bridge {
	return &bridge{
		ch:   make(chan tea.Msg, bridgeBuffer),
		done: make(chan struct{}),
	}
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

func (b *bridge) navigate(path string) {
	b.send(navigateMsg{path: path})
}

// wait returns a command delivering the next message. Each delivered bridge
// message must re-arm it.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) close() {
	b.once.Do(func() { close(b.done) })
}

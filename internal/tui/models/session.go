package models

import (
	"sync"
	"time"

	ch341 "github.com/allbin/go-ch341"
	"github.com/allbin/go-ch341/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode is the vim-like mode of the session commands
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ReadyMsg signals that the driver finished opening.
type ReadyMsg struct{}

// DisconnectedMsg signals device removal or close.
type DisconnectedMsg struct{}

// OpenFailedMsg carries a fatal open failure.
type OpenFailedMsg struct {
	Err error
}

// Session owns the driver handle shared between the TUI goroutine and
// the event pump.
type Session struct {
	mu     sync.RWMutex
	driver *ch341.Driver
	ready  bool

	inputMode InputMode
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SetDriver(drv *ch341.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driver = drv
}

func (s *Session) Driver() *ch341.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver
}

func (s *Session) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Session) InputMode() InputMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputMode
}

func (s *Session) SetInputMode(mode InputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputMode = mode
}

// Close shuts the driver down if one was opened.
func (s *Session) Close() {
	s.mu.Lock()
	drv := s.driver
	s.driver = nil
	s.mu.Unlock()

	if drv != nil {
		drv.Close()
	}
}

// PumpEvents forwards driver events into the bubbletea program until the
// event channel goes quiet after a disconnect. Run it in its own
// goroutine.
func PumpEvents(p *tea.Program, drv *ch341.Driver) {
	for ev := range drv.Events() {
		switch ev.Type {
		case ch341.EventReady:
			p.Send(ReadyMsg{})
		case ch341.EventData:
			p.Send(components.ChunkMsg{
				Timestamp: time.Now(),
				Data:      ev.Data,
			})
		case ch341.EventDisconnected:
			p.Send(DisconnectedMsg{})
			return
		case ch341.EventError:
			p.Send(OpenFailedMsg{Err: ev.Err})
			return
		}
	}
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// programReadyMsg passes the *tea.Program to the model so it can start the
// bridge goroutine.
type programReadyMsg struct {
	program *tea.Program
}

// updateMsg carries one update from the client's event stream.
type updateMsg struct {
	update tdmsg.Message
}

// streamErrMsg carries a recoverable event stream error (e.g. a malformed
// message).
type streamErrMsg struct {
	err error
}

// sentMsg carries the outcome of a sendMessage invocation.
type sentMsg struct {
	resp tdmsg.Message
	err  error
}

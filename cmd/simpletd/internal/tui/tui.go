// Package tui implements the interactive terminal session shown after
// authorization completes. It renders the client's event stream and lets
// the user reply to the most recently active chat.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shared-object/simpletd/pkg/client"
)

// Run blocks until the user quits or ctx is cancelled. me labels the
// logged-in account in the title bar.
func Run(ctx context.Context, c *client.Client, me string) error {
	p := tea.NewProgram(newAppModel(ctx, c, me), tea.WithAltScreen(), tea.WithContext(ctx))

	// Hand the program to the model so it can start the bridge goroutine.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

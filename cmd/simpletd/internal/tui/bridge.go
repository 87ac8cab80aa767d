package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shared-object/simpletd/pkg/client"
)

// pollInterval bounds one event stream wait inside the bridge loop.
const pollInterval = time.Second

// startBridge launches the goroutine that pumps the client's event stream
// into the program. It only calls p.Send and never touches model state.
// The returned cancel function stops the bridge and waits for it to exit,
// so no stale messages are sent after it returns.
func startBridge(ctx context.Context, p *tea.Program, c *client.Client) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Go(func() {
		for {
			update, err := c.PollEvent(bridgeCtx, pollInterval)
			if bridgeCtx.Err() != nil {
				return
			}
			if err != nil {
				p.Send(streamErrMsg{err: err})
				continue
			}
			if update != nil {
				p.Send(updateMsg{update: update})
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

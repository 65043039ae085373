package mcp

import (
	"context"
	"os"
	"time"

	"capturevision/internal/logging"
)

// WatchParent cancels the server when the parent process goes away, so a
// client that dies without closing stdio does not leave the server running.
// It polls the parent pid every interval and never touches stdin, which the
// stdio transport owns.
func WatchParent(ctx context.Context, interval time.Duration, cancel context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}

package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("Syncing time with Steam servers...")

	if err := c.timeSync.Sync(ctx, true); err != nil {
		return fmt.Errorf("time sync failed: %w", err)
	}

	status := c.timeSync.Status()
	c.io.Printf("✓ Synced, clock offset is %+d second(s)\n", status.Offset)
	return nil
}

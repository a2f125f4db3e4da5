package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/steamguard/internal/timesync"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== SteamGuard Status ===")
	c.io.Println()

	status := c.timeSync.Status()
	if !status.Synced {
		c.io.Println("Time sync: never synced (using local clock)")
	} else {
		c.io.Printf("Time sync: offset %+d second(s), last sync %s\n",
			status.Offset, time.Unix(status.LastSync, 0).Format(time.RFC3339))
	}
	if status.LastError != timesync.ErrorNone {
		c.io.Printf("Last sync error: %s at %s\n",
			status.LastError, time.Unix(status.LastErrorTime, 0).Format(time.RFC3339))
	}
	c.io.Println()

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	accounts, err := c.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	c.io.Printf("Vault: unlocked, %d account(s)\n", len(accounts))
	for _, account := range accounts {
		loggedIn := "not logged in"
		if account.SteamID != "" {
			loggedIn = "steam id " + account.SteamID
		}
		c.io.Printf("  %-20s %s\n", account.Name, loggedIn)
	}
	return nil
}

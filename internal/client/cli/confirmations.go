package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/steamguard/internal/client/confirm"
)

func (c *Cli) runConfirmations(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing account name. Usage: steamguard confirmations <name>")
	}
	name := args[0]

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	account, err := c.accounts.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get account %q: %w", name, err)
	}
	if account.SteamID == "" {
		return fmt.Errorf("account %q has no steam id yet, run 'steamguard login %s' first", name, name)
	}
	if account.IdentitySecret == "" {
		return fmt.Errorf("account %q has no identity secret, confirmations are unavailable", name)
	}

	service := confirm.NewService(c.api, confirm.NewBuilder(c.timeSync), newPageParser())

	confirmations, err := service.List(ctx, account.DeviceID, account.SteamID, account.IdentitySecret)
	if err != nil {
		return fmt.Errorf("failed to list confirmations: %w", err)
	}

	if len(confirmations) == 0 {
		c.io.Println("No pending confirmations.")
		return nil
	}

	c.io.Printf("Found %d pending confirmation(s):\n", len(confirmations))
	c.io.Println()
	for _, conf := range confirmations {
		c.io.Printf("  [%s] %s\n", conf.ID, conf.Title)
		if conf.Receiving != "" {
			c.io.Printf("      receiving: %s\n", conf.Receiving)
		}
		if conf.Time != "" {
			c.io.Printf("      %s\n", conf.Time)
		}
	}
	return nil
}

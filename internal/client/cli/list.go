package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/steamguard/internal/validation"
)

func (c *Cli) runList(ctx context.Context) error {
	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	accounts, err := c.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		c.io.Println("No accounts found.")
		c.io.Println()
		c.io.Println("Use 'steamguard add' to add your first account.")
		return nil
	}

	c.io.Printf("Found %d account(s):\n", len(accounts))
	c.io.Println()

	for _, account := range accounts {
		secret, err := validation.DecodeSecret(account.SharedSecret)
		if err != nil {
			// Запись с испорченным секретом показываем, но без кода
			c.io.Printf("  %-20s <bad secret: %v>\n", account.Name, err)
			continue
		}
		c.io.Printf("  %-20s %s\n", account.Name, c.codes.GenerateCode(secret))
	}
	return nil
}

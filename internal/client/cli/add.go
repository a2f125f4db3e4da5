package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runAdd(ctx context.Context) error {
	c.io.Println("=== Add Account ===")
	c.io.Println()

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	name, err := c.io.ReadInput("Account name: ")
	if err != nil {
		return fmt.Errorf("failed to read account name: %w", err)
	}

	username, err := c.io.ReadInput("Steam username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	// Секреты из maFile мобильного аутентификатора, base64
	sharedSecret, err := c.io.ReadPassword("Shared secret (base64): ")
	if err != nil {
		return fmt.Errorf("failed to read shared secret: %w", err)
	}

	identitySecret, err := c.io.ReadPassword("Identity secret (base64, optional): ")
	if err != nil {
		return fmt.Errorf("failed to read identity secret: %w", err)
	}

	account, err := c.accounts.Add(ctx, name, username, sharedSecret, identitySecret)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ Account %q added\n", account.Name)
	c.io.Printf("Device ID: %s\n", account.DeviceID)
	return nil
}

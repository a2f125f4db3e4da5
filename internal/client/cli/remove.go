package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRemove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing account name. Usage: steamguard remove <name>")
	}
	name := args[0]

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	// Удаление необратимо: без секретов аккаунт не восстановить
	answer, err := c.io.ReadInput(fmt.Sprintf("Remove account %q? This cannot be undone [y/N]: ", name))
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if answer != "y" && answer != "Y" {
		c.io.Println("Aborted.")
		return nil
	}

	if err := c.accounts.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to remove account %q: %w", name, err)
	}

	c.io.Printf("✓ Account %q removed\n", name)
	return nil
}

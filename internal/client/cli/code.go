package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/steamguard/internal/timesync"
	"github.com/iudanet/steamguard/internal/validation"
)

func (c *Cli) runCode(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing account name. Usage: steamguard code <name>")
	}
	name := args[0]

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	account, err := c.accounts.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get account %q: %w", name, err)
	}

	secret, err := validation.DecodeSecret(account.SharedSecret)
	if err != nil {
		return fmt.Errorf("account %q has unusable shared secret: %w", name, err)
	}

	code := c.codes.GenerateCode(secret)
	secondsLeft := timesync.IntervalSeconds - c.timeSync.CurrentTime()%timesync.IntervalSeconds

	c.io.Printf("%s\n", code)
	c.io.Printf("Valid for %d more second(s)\n", secondsLeft)
	return nil
}

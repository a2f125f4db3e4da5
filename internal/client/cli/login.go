package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/steamguard/internal/client/session"
)

// maxLoginRounds ограничивает интерактивный цикл challenge-ответов
const maxLoginRounds = 5

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing account name. Usage: steamguard login <name>")
	}
	name := args[0]

	if err := c.unlockVault(ctx); err != nil {
		return err
	}

	account, err := c.accounts.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get account %q: %w", name, err)
	}

	password, err := c.io.ReadPassword(fmt.Sprintf("Steam password for %s: ", account.Username))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sess, err := session.NewSession(c.api, c.codes, c.logger, account.Username, password, account.SharedSecret)
	if err != nil {
		return fmt.Errorf("failed to create login session: %w", err)
	}

	c.io.Println("Logging in...")
	state := sess.Login(ctx)

	for round := 0; round < maxLoginRounds; round++ {
		switch state {
		case session.StateAuthenticated:
			if warning := sess.Warning(); warning != "" {
				c.io.Printf("Warning: %s\n", warning)
			}
			c.io.Println("✓ Login successful!")
			c.io.Printf("Steam ID: %s\n", sess.SteamID())

			// Запоминаем steam id: он нужен для подтверждений
			account.SteamID = sess.SteamID()
			if err := c.accounts.Update(ctx, account); err != nil {
				return fmt.Errorf("failed to save steam id: %w", err)
			}
			return nil

		case session.StateNeedCaptcha:
			c.io.Printf("Captcha required: %s\n", sess.CaptchaURL())
			captchaText, err := c.io.ReadInput("Captcha text: ")
			if err != nil {
				return fmt.Errorf("failed to read captcha: %w", err)
			}
			state = sess.SubmitCaptcha(ctx, captchaText)

		case session.StateNeed2FA:
			// Код уже отправляется автоматически; повторная попытка
			// возьмет код следующего интервала
			c.io.Println("Server rejected the code, retrying with a fresh one...")
			state = sess.Login(ctx)

		case session.StateNeedEmail:
			return fmt.Errorf("email confirmation required for steam id %s: %s", sess.EmailSteamID(), sess.Message())

		case session.StateBadCredentials:
			return fmt.Errorf("bad credentials: %s", sess.Message())

		case session.StateTooManyFailures:
			return fmt.Errorf("too many login failures, try again later: %s", sess.Message())

		case session.StateBadRSA:
			return fmt.Errorf("could not obtain RSA key: %s", sess.Message())

		default:
			return fmt.Errorf("login failed: %s", sess.Message())
		}
	}

	return fmt.Errorf("login did not complete after %d rounds", maxLoginRounds)
}

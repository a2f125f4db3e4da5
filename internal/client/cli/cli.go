package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/steamguard/internal/client/accounts"
	clientapi "github.com/iudanet/steamguard/internal/client/api"
	"github.com/iudanet/steamguard/internal/client/iocli"
	"github.com/iudanet/steamguard/internal/client/storage"
	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/timesync"
)

// Cli связывает команды терминального клиента с сервисами ядра
type Cli struct {
	io       iocli.IO
	accounts *accounts.Service
	api      clientapi.ClientAPI
	timeSync *timesync.Service
	codes    *guard.Generator
	logger   *slog.Logger
}

// New создает CLI поверх готовых сервисов
func New(io iocli.IO, accountService *accounts.Service, api clientapi.ClientAPI,
	timeSync *timesync.Service, logger *slog.Logger,
) *Cli {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cli{
		io:       io,
		accounts: accountService,
		api:      api,
		timeSync: timeSync,
		codes:    guard.NewGenerator(timeSync),
		logger:   logger,
	}
}

// Run выполняет одну команду
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return c.runAdd(ctx)
	case "list":
		return c.runList(ctx)
	case "code":
		return c.runCode(ctx, args)
	case "remove":
		return c.runRemove(ctx, args)
	case "login":
		return c.runLogin(ctx, args)
	case "confirmations":
		return c.runConfirmations(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "sync":
		return c.runSync(ctx)
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку по командам
func (c *Cli) PrintUsage() {
	c.io.Println("Usage: steamguard [flags] <command>")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  add            Add a Steam account to the vault")
	c.io.Println("  list           List accounts with current Steam Guard codes")
	c.io.Println("  code <name>    Print the current code for one account")
	c.io.Println("  remove <name>  Remove an account from the vault")
	c.io.Println("  login <name>   Log the account in to Steam")
	c.io.Println("  confirmations <name>  List pending trade confirmations")
	c.io.Println("  status         Show vault and time sync status")
	c.io.Println("  sync           Force a server time resync")
}

// unlockVault запрашивает master password и открывает хранилище.
// При первом запуске инициализирует его.
func (c *Cli) unlockVault(ctx context.Context) error {
	if c.accounts.Unlocked() {
		return nil
	}

	masterPassword, err := c.io.ReadPassword("Master password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	err = c.accounts.Unlock(ctx, masterPassword)
	if errors.Is(err, storage.ErrVaultNotInitialized) {
		c.io.Println("Vault is not initialized, creating a new one.")
		confirmPassword, err := c.io.ReadPassword("Repeat master password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if confirmPassword != masterPassword {
			return fmt.Errorf("passwords do not match")
		}
		if err := c.accounts.Init(ctx, masterPassword); err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to unlock vault: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"time"

	"github.com/iudanet/steamguard/internal/models"
)

// AccountStorage defines interface for the local account vault.
// This is the lowest storage layer - it works with raw records whose
// secret fields are already encrypted and doesn't perform any
// encryption/decryption itself.
type AccountStorage interface {
	// SaveAccount stores or updates an account record as-is
	SaveAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by ID
	// Returns ErrAccountNotFound if no such account exists
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// GetAccountByName retrieves an account by its display name
	// Returns ErrAccountNotFound if no such account exists
	GetAccountByName(ctx context.Context, name string) (*models.Account, error)

	// ListAccounts returns all stored accounts in name order
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// DeleteAccount removes an account record
	DeleteAccount(ctx context.Context, id string) error

	// SaveVaultMeta stores vault metadata (key derivation salt)
	SaveVaultMeta(ctx context.Context, meta *VaultMeta) error

	// GetVaultMeta retrieves vault metadata
	// Returns ErrVaultNotInitialized if the vault was never set up
	GetVaultMeta(ctx context.Context) (*VaultMeta, error)
}

// VaultMeta - метаданные локального хранилища.
// Соль публична и хранится открыто; ключ шифрования деривируется из
// master password и существует только в памяти.
type VaultMeta struct {
	Salt      string    `json:"salt"`       // base64 соль для Argon2id
	CreatedAt time.Time `json:"created_at"` // время инициализации хранилища
}

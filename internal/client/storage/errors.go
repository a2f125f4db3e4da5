package storage

import "errors"

// Common client storage errors
var (
	// ErrAccountNotFound indicates that the account was not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates a name collision on save
	ErrAccountExists = errors.New("account with this name already exists")

	// ErrVaultNotInitialized indicates the vault was never set up
	ErrVaultNotInitialized = errors.New("vault is not initialized")

	// ErrVaultLocked indicates an operation that needs the vault key
	// was called before Unlock
	ErrVaultLocked = errors.New("vault is locked")
)

package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/steamguard/internal/client/storage"
	"github.com/iudanet/steamguard/internal/models"
)

// Compile-time check that Storage implements AccountStorage
var _ storage.AccountStorage = (*Storage)(nil)

// SaveAccount stores or updates an account record
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		data, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}

		if err := bucket.Put([]byte(account.ID), data); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		return nil
	})
}

// GetAccount retrieves an account by ID
func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account *models.Account

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrAccountNotFound
		}

		account = &models.Account{}
		if err := json.Unmarshal(data, account); err != nil {
			return fmt.Errorf("failed to unmarshal account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccountByName retrieves an account by its display name
func (s *Storage) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	var account *models.Account

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			candidate := &models.Account{}
			if err := json.Unmarshal(v, candidate); err != nil {
				return fmt.Errorf("failed to unmarshal account: %w", err)
			}
			if candidate.Name == name {
				account = candidate
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, storage.ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns all stored accounts sorted by name
func (s *Storage) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			account := &models.Account{}
			if err := json.Unmarshal(v, account); err != nil {
				return fmt.Errorf("failed to unmarshal account: %w", err)
			}
			accounts = append(accounts, account)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

// DeleteAccount removes an account record
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		if bucket.Get([]byte(id)) == nil {
			return storage.ErrAccountNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
}

// SaveVaultMeta stores vault metadata
func (s *Storage) SaveVaultMeta(ctx context.Context, meta *storage.VaultMeta) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVault)
		if bucket == nil {
			return fmt.Errorf("vault bucket not found")
		}

		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal vault meta: %w", err)
		}
		if err := bucket.Put(vaultMetaKey, data); err != nil {
			return fmt.Errorf("failed to save vault meta: %w", err)
		}
		return nil
	})
}

// GetVaultMeta retrieves vault metadata
func (s *Storage) GetVaultMeta(ctx context.Context) (*storage.VaultMeta, error) {
	var meta *storage.VaultMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVault)
		if bucket == nil {
			return fmt.Errorf("vault bucket not found")
		}

		data := bucket.Get(vaultMetaKey)
		if data == nil {
			return storage.ErrVaultNotInitialized
		}

		meta = &storage.VaultMeta{}
		if err := json.Unmarshal(data, meta); err != nil {
			return fmt.Errorf("failed to unmarshal vault meta: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/steamguard/internal/client/storage"
	"github.com/iudanet/steamguard/internal/crypto"
	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/models"
	"github.com/iudanet/steamguard/internal/validation"
)

// Service - слой шифрования между бизнес-логикой и хранилищем.
// Секреты аккаунтов шифруются ключом хранилища перед сохранением и
// расшифровываются при чтении; хранилище видит только шифртекст.
type Service struct {
	storage  storage.AccountStorage
	vaultKey []byte
}

// NewService создает сервис аккаунтов поверх хранилища.
// До Init или Unlock операции с секретами недоступны.
func NewService(accountStorage storage.AccountStorage) *Service {
	return &Service{storage: accountStorage}
}

// Init инициализирует новое хранилище: генерирует соль и деривирует
// ключ из master password
func (s *Service) Init(ctx context.Context, masterPassword string) error {
	if _, err := s.storage.GetVaultMeta(ctx); err == nil {
		return fmt.Errorf("vault is already initialized")
	} else if !errors.Is(err, storage.ErrVaultNotInitialized) {
		return fmt.Errorf("failed to check vault meta: %w", err)
	}

	saltBase64, err := crypto.GenerateSaltBase64()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := crypto.DeriveVaultKeyFromBase64Salt(masterPassword, saltBase64)
	if err != nil {
		return fmt.Errorf("failed to derive vault key: %w", err)
	}

	meta := &storage.VaultMeta{
		Salt:      saltBase64,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.SaveVaultMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to save vault meta: %w", err)
	}

	s.vaultKey = key
	return nil
}

// Unlock деривирует ключ хранилища из master password и сохраненной
// соли. Неверный пароль обнаружится на первой расшифровке секрета.
func (s *Service) Unlock(ctx context.Context, masterPassword string) error {
	meta, err := s.storage.GetVaultMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to get vault meta: %w", err)
	}

	key, err := crypto.DeriveVaultKeyFromBase64Salt(masterPassword, meta.Salt)
	if err != nil {
		return fmt.Errorf("failed to derive vault key: %w", err)
	}

	s.vaultKey = key
	return nil
}

// Unlocked сообщает, установлен ли ключ хранилища
func (s *Service) Unlocked() bool {
	return s.vaultKey != nil
}

// Add валидирует и сохраняет новый аккаунт.
// Секреты проверяются на декодируемость сразу: непригодные учетные
// данные — ошибка конструирования записи.
func (s *Service) Add(ctx context.Context, name, username, sharedSecret, identitySecret string) (*models.Account, error) {
	if s.vaultKey == nil {
		return nil, storage.ErrVaultLocked
	}

	if err := validation.ValidateAccountName(name); err != nil {
		return nil, fmt.Errorf("invalid account name: %w", err)
	}
	if _, err := validation.DecodeSecret(sharedSecret); err != nil {
		return nil, fmt.Errorf("invalid shared secret: %w", err)
	}
	if identitySecret != "" {
		if _, err := validation.DecodeSecret(identitySecret); err != nil {
			return nil, fmt.Errorf("invalid identity secret: %w", err)
		}
	}

	if _, err := s.storage.GetAccountByName(ctx, name); err == nil {
		return nil, storage.ErrAccountExists
	} else if !errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to check account name: %w", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:             uuid.New().String(),
		Name:           name,
		Username:       username,
		SharedSecret:   sharedSecret,
		IdentitySecret: identitySecret,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Идентификатор устройства детерминирован по записи: один и тот
	// же для всех запросов подтверждений этого аккаунта
	account.DeviceID = guard.DeviceID(account.ID)

	encrypted, err := s.encryptSecrets(account)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SaveAccount(ctx, encrypted); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return account, nil
}

// Get возвращает аккаунт по имени с расшифрованными секретами
func (s *Service) Get(ctx context.Context, name string) (*models.Account, error) {
	if s.vaultKey == nil {
		return nil, storage.ErrVaultLocked
	}

	account, err := s.storage.GetAccountByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.decryptSecrets(account)
}

// List возвращает все аккаунты с расшифрованными секретами
func (s *Service) List(ctx context.Context) ([]*models.Account, error) {
	if s.vaultKey == nil {
		return nil, storage.ErrVaultLocked
	}

	stored, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, 0, len(stored))
	for _, account := range stored {
		decrypted, err := s.decryptSecrets(account)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt account %q: %w", account.Name, err)
		}
		accounts = append(accounts, decrypted)
	}
	return accounts, nil
}

// Update сохраняет измененный аккаунт (например steam id после логина)
func (s *Service) Update(ctx context.Context, account *models.Account) error {
	if s.vaultKey == nil {
		return storage.ErrVaultLocked
	}

	account.UpdatedAt = time.Now().UTC()
	encrypted, err := s.encryptSecrets(account)
	if err != nil {
		return err
	}
	if err := s.storage.SaveAccount(ctx, encrypted); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Delete удаляет аккаунт по имени
func (s *Service) Delete(ctx context.Context, name string) error {
	account, err := s.storage.GetAccountByName(ctx, name)
	if err != nil {
		return err
	}
	return s.storage.DeleteAccount(ctx, account.ID)
}

// encryptSecrets возвращает копию записи с зашифрованными секретами
func (s *Service) encryptSecrets(account *models.Account) (*models.Account, error) {
	encrypted := *account

	sharedEncrypted, err := crypto.EncryptToBase64([]byte(account.SharedSecret), s.vaultKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt shared secret: %w", err)
	}
	encrypted.SharedSecret = sharedEncrypted

	if account.IdentitySecret != "" {
		identityEncrypted, err := crypto.EncryptToBase64([]byte(account.IdentitySecret), s.vaultKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt identity secret: %w", err)
		}
		encrypted.IdentitySecret = identityEncrypted
	}
	return &encrypted, nil
}

// decryptSecrets возвращает копию записи с расшифрованными секретами
func (s *Service) decryptSecrets(account *models.Account) (*models.Account, error) {
	decrypted := *account

	shared, err := crypto.DecryptFromBase64(account.SharedSecret, s.vaultKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt shared secret: %w", err)
	}
	decrypted.SharedSecret = string(shared)

	if account.IdentitySecret != "" {
		identity, err := crypto.DecryptFromBase64(account.IdentitySecret, s.vaultKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt identity secret: %w", err)
		}
		decrypted.IdentitySecret = string(identity)
	}
	return &decrypted, nil
}

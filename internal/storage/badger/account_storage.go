package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

// SaveAccount inserts or updates an account record with its positions
func (s *AccountStorage) SaveAccount(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = account.UpdatedAt
	}
	if err := s.db.Store().Upsert(account.ID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID
func (s *AccountStorage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.Store().Get(id, &account)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountsByUser returns all accounts belonging to a user, oldest first
func (s *AccountStorage) GetAccountsByUser(ctx context.Context, userID string) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := s.db.Store().Find(&accounts, badgerhold.Where("UserID").Eq(userID).Index("UserID").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get accounts for user %s: %w", userID, err)
	}
	return accounts, nil
}

// DeleteAccount removes an account record
func (s *AccountStorage) DeleteAccount(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Account{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// CountAccounts returns the total number of accounts
func (s *AccountStorage) CountAccounts(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Account{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return int(count), nil
}

package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/folio/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ListOptions provides pagination and filtering for list operations
type ListOptions struct {
	Limit  int
	Offset int
	Status string // Filter by job status, empty for all
}

// UserStorage - interface for user persistence
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// AccountStorage - interface for account and position persistence
type AccountStorage interface {
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountsByUser(ctx context.Context, userID string) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CountAccounts(ctx context.Context) (int, error)
}

// InstrumentStorage - interface for the shared instrument reference table
type InstrumentStorage interface {
	SaveInstrument(ctx context.Context, instrument *models.Instrument) error
	SaveInstruments(ctx context.Context, instruments []*models.Instrument) error
	GetInstrument(ctx context.Context, symbol string) (*models.Instrument, error)
	// GetInstruments returns the subset of requested symbols that exist,
	// keyed by symbol. Missing symbols are simply absent from the map.
	GetInstruments(ctx context.Context, symbols []string) (map[string]*models.Instrument, error)
	ListInstruments(ctx context.Context) ([]*models.Instrument, error)
	DeleteInstrument(ctx context.Context, symbol string) error
	CountInstruments(ctx context.Context) (int, error)
}

// JobStorage - interface for analysis job persistence
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// UpdateJob applies fn to the stored record in a single transaction.
	// Concurrent analysts each write a disjoint payload slot, so updates
	// must not clobber slots written since the caller's last read.
	UpdateJob(ctx context.Context, id string, fn func(*models.Job) error) error
	ListJobs(ctx context.Context, opts *ListOptions) ([]*models.Job, error)
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	// GetStaleRunningJobs returns jobs that have been in the running state
	// longer than the given duration.
	GetStaleRunningJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	CountJobs(ctx context.Context) (int, error)
}

// KeyValuePair represents a single key/value pair with metadata
type KeyValuePair struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations for generic key/value storage
// (API keys, feature toggles, operational state).
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]KeyValuePair, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	Users() UserStorage
	Accounts() AccountStorage
	Instruments() InstrumentStorage
	Jobs() JobStorage
	KV() KeyValueStorage
	DB() interface{}
	Close() error
}

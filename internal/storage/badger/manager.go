package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	users       interfaces.UserStorage
	accounts    interfaces.AccountStorage
	instruments interfaces.InstrumentStorage
	jobs        interfaces.JobStorage
	kv          interfaces.KeyValueStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		users:       NewUserStorage(db, logger),
		accounts:    NewAccountStorage(db, logger),
		instruments: NewInstrumentStorage(db, logger),
		jobs:        NewJobStorage(db, logger),
		kv:          NewKVStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Users returns the user storage interface
func (m *Manager) Users() interfaces.UserStorage {
	return m.users
}

// Accounts returns the account storage interface
func (m *Manager) Accounts() interfaces.AccountStorage {
	return m.accounts
}

// Instruments returns the instrument storage interface
func (m *Manager) Instruments() interfaces.InstrumentStorage {
	return m.instruments
}

// Jobs returns the job storage interface
func (m *Manager) Jobs() interfaces.JobStorage {
	return m.jobs
}

// KV returns the key/value storage interface
func (m *Manager) KV() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

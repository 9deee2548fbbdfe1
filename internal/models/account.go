package models

import (
	"time"

	"github.com/google/uuid"
)

// Position represents a holding of an instrument within an account
type Position struct {
	ID        string  `json:"id"`
	AccountID string  `json:"account_id"`
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
}

// Account represents a single investment account owned by a user.
// Positions are stored inline with the account record.
type Account struct {
	ID          string     `json:"id" badgerhold:"key"`
	UserID      string     `json:"user_id" badgerhold:"index"`
	Name        string     `json:"name"`
	CashBalance *float64   `json:"cash_balance,omitempty"` // nil is treated as zero
	Positions   []Position `json:"positions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewAccount creates an account with a generated ID
func NewAccount(userID, name string) *Account {
	now := time.Now()
	return &Account{
		ID:        "acct_" + uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Cash returns the account's cash balance, treating nil as zero
func (a *Account) Cash() float64 {
	if a.CashBalance == nil {
		return 0
	}
	return *a.CashBalance
}

// AddPosition appends a position with a generated ID
func (a *Account) AddPosition(symbol string, quantity float64) {
	a.Positions = append(a.Positions, Position{
		ID:        "pos_" + uuid.New().String(),
		AccountID: a.ID,
		Symbol:    symbol,
		Quantity:  quantity,
	})
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a portfolio owner with retirement preferences
type User struct {
	ID                     string    `json:"id" badgerhold:"key"`
	DisplayName            string    `json:"display_name"`
	YearsUntilRetirement   int       `json:"years_until_retirement"`   // 0 means already retired or not planning
	TargetRetirementIncome float64   `json:"target_retirement_income"` // Desired annual income in retirement
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewUser creates a user with a generated ID
func NewUser(displayName string) *User {
	now := time.Now()
	return &User{
		ID:          "user_" + uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Package ledger provides credit accounting for the generation pipeline.
// Every balance change is recorded as an append-only ledger entry; the user
// balance must equal the sum of ledger deltas after each completed operation.
package ledger

import (
	"context"
	"errors"
	"time"
)

// EntryType distinguishes balance increases from decreases.
type EntryType string

const (
	// TypeCredit increases the user balance (payments, signup grants).
	TypeCredit EntryType = "credit"
	// TypeDebit decreases the user balance (generation job starts).
	TypeDebit EntryType = "debit"
)

// Reference types tying entries to their originating records.
const (
	RefGenerationJob = "generation_job"
	RefPayment       = "payment"
	RefSignup        = "signup"
)

// Static errors for ledger operations.
var (
	// ErrInsufficientCredits is returned when a debit would take the balance negative.
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
	// ErrAmountInvalid is returned when a non-positive amount is supplied.
	ErrAmountInvalid = errors.New("ledger: amount must be positive")
	// ErrUserNotFound is returned when no balance exists for the user.
	ErrUserNotFound = errors.New("ledger: user not found")
)

// Entry is an immutable record of one credit balance change.
type Entry struct {
	ID               int64
	UserID           int64
	Type             EntryType
	Amount           int
	ResultingBalance int
	Description      string
	RefType          string
	RefID            int64
	CreatedAt        time.Time
}

// Delta returns the signed balance change of the entry.
func (e Entry) Delta() int {
	if e.Type == TypeDebit {
		return -e.Amount
	}
	return e.Amount
}

// Store defines the persistence interface for ledger entries and balances.
type Store interface {
	// Append records an entry and assigns its ID.
	Append(ctx context.Context, entry *Entry) error

	// ByReference returns all entries for a reference, oldest first.
	ByReference(ctx context.Context, refType string, refID int64) ([]Entry, error)

	// ByUser returns all entries for a user, newest first.
	ByUser(ctx context.Context, userID int64) ([]Entry, error)

	// Balance returns the current credit balance of a user.
	// Returns ErrUserNotFound if the user has no balance record.
	Balance(ctx context.Context, userID int64) (int, error)

	// SetBalance updates the stored balance of a user, creating the record
	// if needed.
	SetBalance(ctx context.Context, userID int64, balance int) error
}

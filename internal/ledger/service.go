package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service applies credit and debit operations through the Store, keeping the
// balance and the entry log consistent. Debits keyed to a generation job are
// idempotent: retries of the same job never debit twice.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new ledger service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// DebitForJob debits the generation cost for a job exactly once. If a debit
// entry already references the job, the existing entry is returned unchanged,
// so callers may invoke it on every retry without double-charging.
func (s *Service) DebitForJob(ctx context.Context, userID int64, amount int, jobID int64) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrAmountInvalid
	}

	existing, err := s.store.ByReference(ctx, RefGenerationJob, jobID)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: lookup job debit: %w", err)
	}
	for _, e := range existing {
		if e.Type == TypeDebit {
			s.logger.Debug("debit already applied for job",
				slog.Int64("job_id", jobID),
				slog.Int64("entry_id", e.ID),
			)
			return e, nil
		}
	}

	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: read balance: %w", err)
	}
	if balance < amount {
		return Entry{}, ErrInsufficientCredits
	}

	entry := &Entry{
		UserID:           userID,
		Type:             TypeDebit,
		Amount:           amount,
		ResultingBalance: balance - amount,
		Description:      fmt.Sprintf("video generation (job %d)", jobID),
		RefType:          RefGenerationJob,
		RefID:            jobID,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("ledger: append debit: %w", err)
	}
	if err := s.store.SetBalance(ctx, userID, entry.ResultingBalance); err != nil {
		return Entry{}, fmt.Errorf("ledger: update balance: %w", err)
	}

	s.logger.Info("credits debited",
		slog.Int64("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("balance", entry.ResultingBalance),
		slog.Int64("job_id", jobID),
	)
	return *entry, nil
}

// Credit grants credits to a user, recording the originating reference
// (payment id, signup, ...).
func (s *Service) Credit(ctx context.Context, userID int64, amount int, description, refType string, refID int64) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrAmountInvalid
	}

	balance, err := s.store.Balance(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return Entry{}, fmt.Errorf("ledger: read balance: %w", err)
	}

	entry := &Entry{
		UserID:           userID,
		Type:             TypeCredit,
		Amount:           amount,
		ResultingBalance: balance + amount,
		Description:      description,
		RefType:          refType,
		RefID:            refID,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("ledger: append credit: %w", err)
	}
	if err := s.store.SetBalance(ctx, userID, entry.ResultingBalance); err != nil {
		return Entry{}, fmt.Errorf("ledger: update balance: %w", err)
	}

	s.logger.Info("credits granted",
		slog.Int64("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("balance", entry.ResultingBalance),
		slog.String("ref_type", refType),
	)
	return *entry, nil
}

// Balance returns the current credit balance of a user.
func (s *Service) Balance(ctx context.Context, userID int64) (int, error) {
	return s.store.Balance(ctx, userID)
}

// Reconcile verifies that the stored balance equals the sum of ledger deltas
// for the user, returning both values.
func (s *Service) Reconcile(ctx context.Context, userID int64) (stored, computed int, err error) {
	stored, err = s.store.Balance(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	entries, err := s.store.ByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		computed += e.Delta()
	}
	return stored, computed, nil
}

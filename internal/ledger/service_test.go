package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFundedService(t *testing.T, userID int64, credits int) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.SetBalance(context.Background(), userID, credits))
	return NewService(store, nil), store
}

func TestDebitForJob(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFundedService(t, 1, 5)

	entry, err := svc.DebitForJob(ctx, 1, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, TypeDebit, entry.Type)
	assert.Equal(t, 2, entry.Amount)
	assert.Equal(t, 3, entry.ResultingBalance)
	assert.Equal(t, RefGenerationJob, entry.RefType)
	assert.Equal(t, int64(42), entry.RefID)

	balance, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}

func TestDebitForJob_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newFundedService(t, 1, 5)

	first, err := svc.DebitForJob(ctx, 1, 1, 42)
	require.NoError(t, err)

	// Repeated debits for the same job return the original entry and do not
	// change the balance, whatever the retry count.
	for i := 0; i < 3; i++ {
		again, err := svc.DebitForJob(ctx, 1, 1, 42)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}

	balance, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, balance)

	entries, err := store.ByReference(ctx, RefGenerationJob, 42)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDebitForJob_InsufficientCredits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFundedService(t, 1, 1)

	_, err := svc.DebitForJob(ctx, 1, 2, 42)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Nothing recorded, balance untouched.
	balance, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)
}

func TestDebitForJob_InvalidAmount(t *testing.T) {
	svc, _ := newFundedService(t, 1, 5)

	_, err := svc.DebitForJob(context.Background(), 1, 0, 42)
	assert.ErrorIs(t, err, ErrAmountInvalid)

	_, err = svc.DebitForJob(context.Background(), 1, -3, 42)
	assert.ErrorIs(t, err, ErrAmountInvalid)
}

func TestCredit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	// Crediting a brand-new user starts from zero.
	entry, err := svc.Credit(ctx, 9, 10, "payment completed", RefPayment, 77)
	require.NoError(t, err)
	assert.Equal(t, TypeCredit, entry.Type)
	assert.Equal(t, 10, entry.ResultingBalance)

	balance, err := svc.Balance(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)
}

// wrappingStore returns its not-found error wrapped, as a Postgres-backed
// store would.
type wrappingStore struct {
	*MemoryStore
}

func (s *wrappingStore) Balance(ctx context.Context, userID int64) (int, error) {
	balance, err := s.MemoryStore.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ledger: select balance: %w", err)
	}
	return balance, nil
}

func TestCredit_WrappedUserNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&wrappingStore{MemoryStore: NewMemoryStore()}, nil)

	entry, err := svc.Credit(ctx, 9, 10, "payment completed", RefPayment, 77)
	require.NoError(t, err)
	assert.Equal(t, 10, entry.ResultingBalance)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFundedService(t, 1, 0)

	_, err := svc.Credit(ctx, 1, 10, "payment", RefPayment, 1)
	require.NoError(t, err)
	_, err = svc.DebitForJob(ctx, 1, 3, 5)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, 1, 2, "signup bonus", RefSignup, 1)
	require.NoError(t, err)

	stored, computed, err := svc.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, stored)
	assert.Equal(t, stored, computed)
}

func TestEntry_Delta(t *testing.T) {
	assert.Equal(t, 5, Entry{Type: TypeCredit, Amount: 5}.Delta())
	assert.Equal(t, -5, Entry{Type: TypeDebit, Amount: 5}.Delta())
}

func TestMemoryStore_BalanceUnknownUser(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Balance(context.Background(), 123)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

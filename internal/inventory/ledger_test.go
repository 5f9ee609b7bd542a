package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	stocks map[string]int64
	txs    []Transaction
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{stocks: make(map[string]int64)}
}

func stockKey(branchID, partID int64) string {
	return fmt.Sprintf("%d:%d", branchID, partID)
}

func (s *memoryStore) GetStockForUpdate(ctx context.Context, branchID, partID int64) (int64, error) {
	qty, ok := s.stocks[stockKey(branchID, partID)]
	if !ok {
		return 0, ErrStockNotFound
	}
	return qty, nil
}

func (s *memoryStore) SetStockQty(ctx context.Context, branchID, partID, qty int64) error {
	s.stocks[stockKey(branchID, partID)] = qty
	return nil
}

func (s *memoryStore) InsertTransaction(ctx context.Context, tx Transaction) (int64, error) {
	s.nextID++
	tx.ID = s.nextID
	s.txs = append(s.txs, tx)
	return s.nextID, nil
}

func TestApplyInbound(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(nil)
	ctx := context.Background()

	change, err := ledger.Apply(ctx, store, Movement{
		Type: TransactionTypeIn, BranchID: 1, PartID: 10, PartName: "Nhớt Castrol 10W40",
		Qty: 10, UnitPrice: 85000, Policy: PolicyReject,
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), change.Before)
	require.Equal(t, int64(10), change.After)
	require.False(t, change.Clamped)
	require.Len(t, store.txs, 1)
	require.InDelta(t, 850000, store.txs[0].TotalPrice, 0.01)

	change, err = ledger.Apply(ctx, store, Movement{
		Type: TransactionTypeOut, BranchID: 1, PartID: 10, PartName: "Nhớt Castrol 10W40",
		Qty: -4, UnitPrice: 85000, Policy: PolicyReject,
	})
	require.NoError(t, err)
	require.Equal(t, int64(6), change.After)
}

func TestApplyRejectsNegativeStock(t *testing.T) {
	store := newMemoryStore()
	store.stocks[stockKey(1, 10)] = 1
	ledger := NewLedger(nil)

	_, err := ledger.Apply(context.Background(), store, Movement{
		Type: TransactionTypeOut, BranchID: 1, PartID: 10, PartName: "Má phanh Yamaha",
		Qty: -5, Policy: PolicyReject,
	})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.Contains(t, err.Error(), "Má phanh Yamaha")
	// no write happened
	require.Equal(t, int64(1), store.stocks[stockKey(1, 10)])
	require.Empty(t, store.txs)
}

func TestApplyClampsAtZero(t *testing.T) {
	store := newMemoryStore()
	store.stocks[stockKey(1, 20)] = 2
	ledger := NewLedger(nil)

	change, err := ledger.Apply(context.Background(), store, Movement{
		Type: TransactionTypeOut, BranchID: 1, PartID: 20, PartName: "Lốp Michelin",
		Qty: -5, Policy: PolicyClampZero,
	})
	require.NoError(t, err)
	require.True(t, change.Clamped)
	require.Equal(t, int64(0), change.After)
	require.Equal(t, int64(0), store.stocks[stockKey(1, 20)])
	require.Len(t, store.txs, 1)
}

func TestApplyRequiresExplicitPolicy(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(nil)

	_, err := ledger.Apply(context.Background(), store, Movement{
		Type: TransactionTypeIn, BranchID: 1, PartID: 10, Qty: 5,
	})
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestApplyRejectsZeroQty(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(nil)

	_, err := ledger.Apply(context.Background(), store, Movement{
		Type: TransactionTypeIn, BranchID: 1, PartID: 10, Qty: 0, Policy: PolicyReject,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

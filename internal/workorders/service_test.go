package workorders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
)

type stockKey struct{ branch, part int64 }

type memoryRepo struct {
	stocks map[stockKey]int64
	orders map[int64]WorkOrder
	items  map[int64]Item
	txs    []inventory.Transaction
	nextID int64
	seq    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stocks: map[stockKey]int64{}, orders: map[int64]WorkOrder{}, items: map[int64]Item{}}
}

func (m *memoryRepo) snapshot() *memoryRepo {
	cp := newMemoryRepo()
	for k, v := range m.stocks {
		cp.stocks[k] = v
	}
	for k, v := range m.orders {
		cp.orders[k] = v
	}
	for k, v := range m.items {
		cp.items[k] = v
	}
	cp.txs = append(cp.txs, m.txs...)
	cp.nextID = m.nextID
	cp.seq = m.seq
	return cp
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := m.snapshot()
	if err := fn(ctx, m); err != nil {
		*m = *before
		return err
	}
	return nil
}

func (m *memoryRepo) GetOrder(_ context.Context, id int64) (WorkOrder, error) {
	wo, ok := m.orders[id]
	if !ok {
		return WorkOrder{}, ErrNotFound
	}
	for _, it := range m.items {
		if it.OrderID == id {
			wo.Items = append(wo.Items, it)
		}
	}
	return wo, nil
}

func (m *memoryRepo) ListOrders(_ context.Context, _ ListFilter) ([]WorkOrder, int, error) {
	out := []WorkOrder{}
	for _, wo := range m.orders {
		out = append(out, wo)
	}
	return out, len(out), nil
}

func (m *memoryRepo) NextOrderSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) InsertOrder(_ context.Context, wo WorkOrder) (int64, error) {
	m.nextID++
	wo.ID = m.nextID
	m.orders[wo.ID] = wo
	return wo.ID, nil
}

func (m *memoryRepo) GetOrderForUpdate(_ context.Context, id int64) (WorkOrder, error) {
	wo, ok := m.orders[id]
	if !ok {
		return WorkOrder{}, ErrNotFound
	}
	return wo, nil
}

func (m *memoryRepo) SetStatus(_ context.Context, id int64, status Status, completedAt *time.Time) error {
	wo := m.orders[id]
	wo.Status = status
	wo.CompletedAt = completedAt
	m.orders[id] = wo
	return nil
}

func (m *memoryRepo) InsertItem(_ context.Context, it Item) (int64, error) {
	m.nextID++
	it.ID = m.nextID
	m.items[it.ID] = it
	return it.ID, nil
}

func (m *memoryRepo) ListItems(_ context.Context, orderID int64) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetStockForUpdate(_ context.Context, branchID, partID int64) (int64, error) {
	qty, ok := m.stocks[stockKey{branchID, partID}]
	if !ok {
		return 0, inventory.ErrStockNotFound
	}
	return qty, nil
}

func (m *memoryRepo) SetStockQty(_ context.Context, branchID, partID, qty int64) error {
	m.stocks[stockKey{branchID, partID}] = qty
	return nil
}

func (m *memoryRepo) InsertTransaction(_ context.Context, t inventory.Transaction) (int64, error) {
	m.nextID++
	t.ID = m.nextID
	m.txs = append(m.txs, t)
	return t.ID, nil
}

func newOrder(t *testing.T, svc *Service) WorkOrder {
	t.Helper()
	wo, err := svc.Create(context.Background(), CreateInput{
		BranchID:     1,
		CustomerName: "Chị Hoa",
		VehiclePlate: "59X1-123.45",
		LaborFee:     50000,
		Items:        []ItemInput{{PartID: 10, PartName: "Má phanh", Quantity: 2, UnitPrice: 80000}},
	})
	require.NoError(t, err)
	return wo
}

func TestLifecycleConsumesPartsOnCompletion(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 5
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	wo := newOrder(t, svc)
	require.Equal(t, StatusDraft, wo.Status)
	require.Contains(t, wo.Code, "SC-")
	require.InDelta(t, 210000, wo.Total(), 0.001)

	// parts untouched while drafting and starting
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])

	started, err := svc.Start(context.Background(), wo.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])

	done, err := svc.Complete(context.Background(), wo.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.EqualValues(t, 3, repo.stocks[stockKey{1, 10}])
	require.Equal(t, inventory.TransactionTypeOut, repo.txs[0].Type)
}

func TestCompleteRejectsWithoutStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 1
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	wo := newOrder(t, svc)
	_, err := svc.Start(context.Background(), wo.ID, 1)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), wo.ID, 1)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)

	// order stays in progress, stock untouched
	current, err := svc.Get(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, current.Status)
	require.EqualValues(t, 1, repo.stocks[stockKey{1, 10}])
}

func TestCancelDoneOrderRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 5
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	wo := newOrder(t, svc)
	_, err := svc.Start(context.Background(), wo.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), wo.ID, 1)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), wo.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelBeforeCompletionReleasesNothing(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 5
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	wo := newOrder(t, svc)
	cancelled, err := svc.Cancel(context.Background(), wo.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])
	require.Empty(t, repo.txs)
}

func TestTransitionMatrix(t *testing.T) {
	require.True(t, CanTransition(StatusDraft, StatusInProgress))
	require.True(t, CanTransition(StatusDraft, StatusCancelled))
	require.True(t, CanTransition(StatusInProgress, StatusDone))
	require.True(t, CanTransition(StatusInProgress, StatusCancelled))
	require.False(t, CanTransition(StatusDraft, StatusDone))
	require.False(t, CanTransition(StatusDone, StatusCancelled))
	require.False(t, CanTransition(StatusCancelled, StatusInProgress))
}

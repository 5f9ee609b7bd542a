package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
)

type stockKey struct{ branch, part int64 }

type memoryRepo struct {
	stocks   map[stockKey]int64
	prices   map[stockKey][2]float64 // retail, wholesale
	invoices map[int64]Invoice
	lines    map[int64]Line
	txs      []inventory.Transaction
	nextID   int64
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stocks:   map[stockKey]int64{},
		prices:   map[stockKey][2]float64{},
		invoices: map[int64]Invoice{},
		lines:    map[int64]Line{},
	}
}

func (m *memoryRepo) snapshot() *memoryRepo {
	cp := newMemoryRepo()
	for k, v := range m.stocks {
		cp.stocks[k] = v
	}
	for k, v := range m.prices {
		cp.prices[k] = v
	}
	for k, v := range m.invoices {
		cp.invoices[k] = v
	}
	for k, v := range m.lines {
		cp.lines[k] = v
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

func (m *memoryRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	for _, ln := range m.lines {
		if ln.InvoiceID == id {
			inv.Lines = append(inv.Lines, ln)
		}
	}
	return inv, nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, _ ListFilter) ([]Invoice, int, error) {
	out := []Invoice{}
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) NextInvoiceSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (m *memoryRepo) InsertLine(_ context.Context, ln Line) (int64, error) {
	m.nextID++
	ln.ID = m.nextID
	m.lines[ln.ID] = ln
	return ln.ID, nil
}

func (m *memoryRepo) GetInvoiceForUpdate(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memoryRepo) ListLines(_ context.Context, invoiceID int64) ([]Line, error) {
	var out []Line
	for _, ln := range m.lines {
		if ln.InvoiceID == invoiceID {
			out = append(out, ln)
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkVoid(_ context.Context, id int64) error {
	inv := m.invoices[id]
	inv.Status = StatusVoid
	m.invoices[id] = inv
	return nil
}

func (m *memoryRepo) GetTierPrice(_ context.Context, branchID, partID int64, tier PriceTier) (float64, error) {
	p := m.prices[stockKey{branchID, partID}]
	if tier == TierWholesale {
		return p[1], nil
	}
	return p[0], nil
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

func TestCreateConsumesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 8
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		BranchID:     1,
		CustomerName: "Anh Tuấn",
		Lines:        []LineInput{{PartID: 10, PartName: "Nhớt Castrol", Quantity: 3, UnitPrice: 120000}},
	})
	require.NoError(t, err)
	require.Contains(t, inv.Code, "HD-")
	require.Equal(t, StatusPosted, inv.Status)
	require.InDelta(t, 360000, inv.Total, 0.001)
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])
	require.Equal(t, inventory.TransactionTypeOut, repo.txs[0].Type)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 2
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	_, err := svc.Create(context.Background(), CreateInput{
		BranchID: 1,
		Lines:    []LineInput{{PartID: 10, PartName: "Nhớt Castrol", Quantity: 3, UnitPrice: 120000}},
	})
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.Contains(t, err.Error(), "Nhớt Castrol")

	// rolled back: no invoice, stock untouched
	require.Empty(t, repo.invoices)
	require.EqualValues(t, 2, repo.stocks[stockKey{1, 10}])
}

func TestCreateUsesTierPriceWhenUnset(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 10
	repo.prices[stockKey{1, 10}] = [2]float64{150000, 130000}
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		BranchID: 1,
		Lines:    []LineInput{{PartID: 10, PartName: "Lốp Michelin", Quantity: 2, Tier: TierWholesale}},
	})
	require.NoError(t, err)
	require.InDelta(t, 260000, inv.Total, 0.001)
}

func TestVoidRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[stockKey{1, 10}] = 8
	svc := NewService(repo, inventory.NewLedger(nil), nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		BranchID: 1,
		Lines:    []LineInput{{PartID: 10, PartName: "Nhớt Castrol", Quantity: 3, UnitPrice: 120000}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])

	voided, err := svc.Void(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)
	require.EqualValues(t, 8, repo.stocks[stockKey{1, 10}])

	_, err = svc.Void(context.Background(), inv.ID, 1)
	require.ErrorIs(t, err, ErrAlreadyVoid)
}

package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
)

type stockKey struct{ branch, part int64 }

type priceRow struct{ cost, retail, wholesale float64 }

type debtRow struct {
	supplierID int64
	receiptID  int64
	amount     float64
}

// memoryRepo is an in-memory RepositoryPort/TxRepository with copy-on-begin
// rollback semantics so failed edits leave no partial writes behind.
type memoryRepo struct {
	stocks   map[stockKey]int64
	prices   map[stockKey]priceRow
	receipts map[int64]Receipt
	lines    map[int64]Line
	debts    []debtRow
	txs      []inventory.Transaction
	nextID   int64
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stocks:   map[stockKey]int64{},
		prices:   map[stockKey]priceRow{},
		receipts: map[int64]Receipt{},
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
	for k, v := range m.receipts {
		cp.receipts[k] = v
	}
	for k, v := range m.lines {
		cp.lines[k] = v
	}
	cp.debts = append(cp.debts, m.debts...)
	cp.txs = append(cp.txs, m.txs...)
	cp.nextID = m.nextID
	cp.seq = m.seq
	return cp
}

func (m *memoryRepo) restore(from *memoryRepo) {
	m.stocks = from.stocks
	m.prices = from.prices
	m.receipts = from.receipts
	m.lines = from.lines
	m.debts = from.debts
	m.txs = from.txs
	m.nextID = from.nextID
	m.seq = from.seq
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *memoryRepo) GetReceipt(_ context.Context, id int64) (Receipt, error) {
	rc, ok := m.receipts[id]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	rc.Lines = m.linesOf(id)
	return rc, nil
}

func (m *memoryRepo) ListReceipts(_ context.Context, _ ListFilter) ([]Receipt, int, error) {
	out := []Receipt{}
	for _, rc := range m.receipts {
		out = append(out, rc)
	}
	return out, len(out), nil
}

func (m *memoryRepo) linesOf(receiptID int64) []Line {
	var out []Line
	for _, ln := range m.lines {
		if ln.ReceiptID == receiptID {
			out = append(out, ln)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepo) NextReceiptSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) InsertReceipt(_ context.Context, rc Receipt) (int64, error) {
	m.nextID++
	rc.ID = m.nextID
	m.receipts[rc.ID] = rc
	return rc.ID, nil
}

func (m *memoryRepo) GetReceiptForUpdate(_ context.Context, id int64) (Receipt, error) {
	rc, ok := m.receipts[id]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return rc, nil
}

func (m *memoryRepo) UpdateReceiptHeader(_ context.Context, id int64, total float64, note string) error {
	rc := m.receipts[id]
	rc.Total = total
	rc.Note = note
	m.receipts[id] = rc
	return nil
}

func (m *memoryRepo) DeleteReceipt(_ context.Context, id int64) error {
	delete(m.receipts, id)
	return nil
}

func (m *memoryRepo) ListLines(_ context.Context, receiptID int64) ([]Line, error) {
	return m.linesOf(receiptID), nil
}

func (m *memoryRepo) InsertLine(_ context.Context, ln Line) (int64, error) {
	m.nextID++
	ln.ID = m.nextID
	m.lines[ln.ID] = ln
	return ln.ID, nil
}

func (m *memoryRepo) UpdateLine(_ context.Context, ln Line) error {
	stored, ok := m.lines[ln.ID]
	if !ok {
		return ErrLineMismatch
	}
	stored.Quantity = ln.Quantity
	stored.UnitPrice = ln.UnitPrice
	stored.TotalPrice = ln.TotalPrice
	stored.Note = ln.Note
	m.lines[ln.ID] = stored
	return nil
}

func (m *memoryRepo) DeleteLine(_ context.Context, id int64) error {
	delete(m.lines, id)
	return nil
}

func (m *memoryRepo) GetPricesForUpdate(_ context.Context, branchID, partID int64) (float64, float64, error) {
	p := m.prices[stockKey{branchID, partID}]
	return p.retail, p.wholesale, nil
}

func (m *memoryRepo) UpdatePrices(_ context.Context, branchID, partID int64, cost, retail, wholesale *float64) error {
	key := stockKey{branchID, partID}
	p := m.prices[key]
	if cost != nil {
		p.cost = *cost
	}
	if retail != nil {
		p.retail = *retail
	}
	if wholesale != nil {
		p.wholesale = *wholesale
	}
	m.prices[key] = p
	return nil
}

func (m *memoryRepo) InsertDebt(_ context.Context, supplierID, receiptID int64, amount float64, _ string, _ time.Time, _ int64) error {
	m.debts = append(m.debts, debtRow{supplierID: supplierID, receiptID: receiptID, amount: amount})
	return nil
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

type failingDebtCleaner struct{ calls int }

func (f *failingDebtCleaner) DeleteByReceipt(context.Context, int64) error {
	f.calls++
	return errors.New("debts unavailable")
}

func newTestService(repo *memoryRepo, cleaner DebtCleaner) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, inventory.NewLedger(nil), nil, cleaner, logger)
}

func TestCreatePostsStockInAndDebt(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 7,
		BranchID:   1,
		Lines: []LineInput{
			{PartID: 10, PartName: "Nhớt Castrol", Quantity: 5, UnitPrice: 90000},
			{PartID: 11, PartName: "Bugi NGK", Quantity: 2, UnitPrice: 45000},
		},
		RecordDebt: true,
		PaidAmount: 100000,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.Contains(t, rc.Code, "PN-")
	require.Len(t, rc.Lines, 2)
	require.InDelta(t, 540000, rc.Total, 0.001)

	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])
	require.EqualValues(t, 2, repo.stocks[stockKey{1, 11}])
	require.Len(t, repo.txs, 2)
	require.Equal(t, inventory.TransactionTypeIn, repo.txs[0].Type)

	require.Len(t, repo.debts, 1)
	require.InDelta(t, 440000, repo.debts[0].amount, 0.001)
	require.Equal(t, rc.ID, repo.debts[0].receiptID)
}

func TestCreateRequiresLines(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), CreateInput{SupplierID: 1, BranchID: 1})
	require.ErrorIs(t, err, ErrEmptyLines)
}

func TestEditQuantityReductionPostsDiff(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Lốp Michelin", Quantity: 3, UnitPrice: 250000}},
	})
	require.NoError(t, err)
	repo.stocks[stockKey{1, 10}] = 10 // other receipts raised stock since

	updated, err := svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{
			ID: fmt.Sprintf("%d", rc.Lines[0].ID), PartID: 10, PartName: "Lốp Michelin", Quantity: 1, UnitPrice: 250000,
		}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 8, repo.stocks[stockKey{1, 10}])
	require.EqualValues(t, 1, updated.Lines[0].Quantity)
	require.InDelta(t, 250000, updated.Total, 0.001)
}

func TestEditIdenticalLinesIsStockNoOp(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Má phanh", Quantity: 4, UnitPrice: 80000}},
	})
	require.NoError(t, err)
	stockBefore := repo.stocks[stockKey{1, 10}]
	txCount := len(repo.txs)

	_, err = svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{
			ID: fmt.Sprintf("%d", rc.Lines[0].ID), PartID: 10, PartName: "Má phanh", Quantity: 4, UnitPrice: 80000,
		}},
	})
	require.NoError(t, err)
	require.Equal(t, stockBefore, repo.stocks[stockKey{1, 10}])
	require.Len(t, repo.txs, txCount, "identity edit must not post movements")
}

func TestEditRejectsWhenDeletionUnderflows(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{
			{PartID: 10, PartName: "Xích DID", Quantity: 5, UnitPrice: 300000},
			{PartID: 11, PartName: "Nhông trước", Quantity: 2, UnitPrice: 120000},
		},
	})
	require.NoError(t, err)
	repo.stocks[stockKey{1, 10}] = 1 // most already sold

	// drop the qty-5 line: reversal needs 5 but only 1 remains
	_, err = svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{
			ID: fmt.Sprintf("%d", rc.Lines[1].ID), PartID: 11, PartName: "Nhông trước", Quantity: 2, UnitPrice: 120000,
		}},
	})
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.Contains(t, err.Error(), "Xích DID")

	// whole edit rolled back: line still present, stock untouched
	require.EqualValues(t, 1, repo.stocks[stockKey{1, 10}])
	kept, _ := repo.GetReceipt(context.Background(), rc.ID)
	require.Len(t, kept.Lines, 2)
}

func TestEditInsertsNewLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Ắc quy GS", Quantity: 1, UnitPrice: 450000}},
	})
	require.NoError(t, err)

	updated, err := svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{
			{ID: fmt.Sprintf("%d", rc.Lines[0].ID), PartID: 10, PartName: "Ắc quy GS", Quantity: 1, UnitPrice: 450000},
			{ID: "new-1", PartID: 12, PartName: "Đèn pha LED", Quantity: 3, UnitPrice: 150000},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	require.EqualValues(t, 3, repo.stocks[stockKey{1, 12}])
	require.InDelta(t, 900000, updated.Total, 0.001)
}

func TestEditRejectsForeignLineID(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Gương chiếu hậu", Quantity: 1, UnitPrice: 60000}},
	})
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{ID: "99999", PartID: 10, PartName: "Gương chiếu hậu", Quantity: 1, UnitPrice: 60000}},
	})
	require.ErrorIs(t, err, ErrLineMismatch)
}

func TestEditRejectsPartChangeOnKeptLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Nhông xích", Quantity: 5, UnitPrice: 120000}},
	})
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{
			ID: fmt.Sprintf("%d", rc.Lines[0].ID), PartID: 99, PartName: "Nhông xích mới", Quantity: 8, UnitPrice: 120000,
		}},
	})
	require.ErrorIs(t, err, ErrLineMismatch)

	// nothing moved: the stored line keeps its part and quantity, the old
	// part's stock is untouched and the new part never existed.
	require.EqualValues(t, 5, repo.stocks[stockKey{1, 10}])
	_, other := repo.stocks[stockKey{1, 99}]
	require.False(t, other)
	after, err := svc.Get(context.Background(), rc.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, after.Lines[0].PartID)
	require.EqualValues(t, 5, after.Lines[0].Quantity)
}

func TestEditKeptLineWithoutPartIDPostsToStoredPart(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Ốc vít", Quantity: 2, UnitPrice: 5000}},
	})
	require.NoError(t, err)

	updated, err := svc.Edit(context.Background(), rc.ID, EditInput{
		Lines: []LineInput{{
			ID: fmt.Sprintf("%d", rc.Lines[0].ID), Quantity: 6, UnitPrice: 5000,
		}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 6, repo.stocks[stockKey{1, 10}])
	require.EqualValues(t, 6, updated.Lines[0].Quantity)
}

func TestDeleteGroupClampsAtZero(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Dây ga", Quantity: 5, UnitPrice: 35000}},
	})
	require.NoError(t, err)
	repo.stocks[stockKey{1, 10}] = 2 // three already consumed

	results := svc.DeleteGroup(context.Background(), []int64{rc.ID}, 1)
	require.Len(t, results, 1)
	require.True(t, results[0].Deleted)
	require.Equal(t, 1, results[0].Clamped)
	require.EqualValues(t, 0, repo.stocks[stockKey{1, 10}])

	_, err = repo.GetReceipt(context.Background(), rc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteGroupDebtCleanupSoftFails(t *testing.T) {
	repo := newMemoryRepo()
	cleaner := &failingDebtCleaner{}
	svc := newTestService(repo, cleaner)

	rc, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1, BranchID: 1,
		Lines: []LineInput{{PartID: 10, PartName: "Lọc gió", Quantity: 2, UnitPrice: 40000}},
	})
	require.NoError(t, err)

	results := svc.DeleteGroup(context.Background(), []int64{rc.ID}, 1)
	require.True(t, results[0].Deleted, "debt cleanup failure must not fail the deletion")
	require.Empty(t, results[0].Error)
	require.Equal(t, 1, cleaner.calls)
}

func TestDeleteGroupReportsMissingReceipts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	results := svc.DeleteGroup(context.Background(), []int64{42}, 1)
	require.Len(t, results, 1)
	require.False(t, results[0].Deleted)
	require.NotEmpty(t, results[0].Error)
}

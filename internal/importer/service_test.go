package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/masterdata"
)

type fakeCatalog struct {
	parts     map[string]masterdata.Part
	nextID    int64
	createErr error
}

func newFakeCatalog(existing ...masterdata.Part) *fakeCatalog {
	c := &fakeCatalog{parts: map[string]masterdata.Part{}, nextID: 100}
	for _, p := range existing {
		c.parts[strings.ToLower(p.SKU)] = p
	}
	return c
}

func (c *fakeCatalog) FindBySKUs(_ context.Context, skus []string) (map[string]masterdata.Part, error) {
	out := map[string]masterdata.Part{}
	for _, sku := range skus {
		key := strings.ToLower(strings.TrimSpace(sku))
		if p, ok := c.parts[key]; ok {
			out[key] = p
		}
	}
	return out, nil
}

func (c *fakeCatalog) CreatePart(_ context.Context, p masterdata.Part, _ int64) (masterdata.Part, error) {
	if c.createErr != nil {
		return masterdata.Part{}, c.createErr
	}
	c.nextID++
	p.ID = c.nextID
	c.parts[strings.ToLower(p.SKU)] = p
	return p, nil
}

type stockKey struct{ branch, part int64 }

type fakeInventory struct {
	stocks map[stockKey]int64
	prices map[stockKey][3]float64
	txs    []inventory.Transaction
	nextID int64
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{stocks: map[stockKey]int64{}, prices: map[stockKey][3]float64{}}
}

func (f *fakeInventory) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeInventory) GetStockForUpdate(_ context.Context, branchID, partID int64) (int64, error) {
	qty, ok := f.stocks[stockKey{branchID, partID}]
	if !ok {
		return 0, inventory.ErrStockNotFound
	}
	return qty, nil
}

func (f *fakeInventory) SetStockQty(_ context.Context, branchID, partID, qty int64) error {
	f.stocks[stockKey{branchID, partID}] = qty
	return nil
}

func (f *fakeInventory) InsertTransaction(_ context.Context, t inventory.Transaction) (int64, error) {
	f.nextID++
	t.ID = f.nextID
	f.txs = append(f.txs, t)
	return t.ID, nil
}

func (f *fakeInventory) SetPrices(_ context.Context, branchID, partID int64, cost, retail, wholesale *float64) error {
	key := stockKey{branchID, partID}
	p := f.prices[key]
	if cost != nil {
		p[0] = *cost
	}
	if retail != nil {
		p[1] = *retail
	}
	if wholesale != nil {
		p[2] = *wholesale
	}
	f.prices[key] = p
	return nil
}

func newTestService(catalog *fakeCatalog, inv *fakeInventory) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(catalog, inv, inventory.NewLedger(nil), logger)
}

func TestProcessCreatesAndUpdates(t *testing.T) {
	catalog := newFakeCatalog(masterdata.Part{ID: 1, SKU: "NHOT-01", Name: "Nhớt Castrol"})
	inv := newFakeInventory()
	svc := newTestService(catalog, inv)

	result, err := svc.Process(context.Background(), []Row{
		{Num: 2, SKU: "NHOT-01", Name: "Nhớt Castrol", Quantity: 10, CostPrice: 80000, RetailPrice: 120000},
		{Num: 3, SKU: "LOP-05", Name: "Lốp Michelin", Quantity: 4, CostPrice: 400000},
	}, 1, 9)
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, 1, result.Updated)
	require.Zero(t, result.Skipped)
	require.Zero(t, result.Failed)

	require.EqualValues(t, 10, inv.stocks[stockKey{1, 1}])
	require.InDelta(t, 120000, inv.prices[stockKey{1, 1}][1], 0.001)

	created := catalog.parts["lop-05"]
	require.NotZero(t, created.ID)
	require.EqualValues(t, 4, inv.stocks[stockKey{1, created.ID}])
}

func TestProcessDuplicateSKUFirstWins(t *testing.T) {
	catalog := newFakeCatalog(masterdata.Part{ID: 1, SKU: "NHOT-01", Name: "Nhớt Castrol"})
	inv := newFakeInventory()
	svc := newTestService(catalog, inv)

	result, err := svc.Process(context.Background(), []Row{
		{Num: 2, SKU: "NHOT-01", Quantity: 10},
		{Num: 3, SKU: "nhot-01", Quantity: 7}, // case-insensitive duplicate
		{Num: 4, SKU: "NHOT-01", Quantity: 3},
	}, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, 2, result.Skipped)

	// first row only: quantities are never summed
	require.EqualValues(t, 10, inv.stocks[stockKey{1, 1}])
	require.Len(t, inv.txs, 1)

	var messages []string
	for _, rr := range result.Rows {
		if rr.Status == StatusSkipped {
			messages = append(messages, rr.Message)
		}
	}
	require.Len(t, messages, 2)
	require.Contains(t, messages[0], "dòng 2")
}

func TestProcessFailedRowDoesNotAbortBatch(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.createErr = errors.New("db down")
	inv := newFakeInventory()
	svc := newTestService(catalog, inv)

	result, err := svc.Process(context.Background(), []Row{
		{Num: 2, SKU: "", Quantity: 5},
		{Num: 3, SKU: "MOI-01", Name: "Phụ tùng mới", Quantity: 5},
	}, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.Failed)
	require.Zero(t, result.Created)
	require.Empty(t, inv.txs)
}

func TestImportFileParsesWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Mã SP", "Tên", "Nhóm", "ĐVT", "SL", "Giá vốn", "Giá lẻ", "Giá sỉ"},
		{"NHOT-01", "Nhớt Castrol", "Dầu nhớt", "chai", 10, 80000, 120000, 100000},
		{"LOP-05", "Lốp Michelin", "Lốp", "cái", 2, 400000, 550000, 500000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	catalog := newFakeCatalog()
	inv := newFakeInventory()
	svc := newTestService(catalog, inv)

	result, err := svc.ImportFile(context.Background(), &buf, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Zero(t, result.Failed)

	nhot := catalog.parts["nhot-01"]
	require.EqualValues(t, 10, inv.stocks[stockKey{1, nhot.ID}])
	require.InDelta(t, 100000, inv.prices[stockKey{1, nhot.ID}][2], 0.001)
}

func TestParseWorkbookRejectsBadQuantity(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	row := []any{"NHOT-01", "Nhớt", "", "", "abc", 0, 0, 0}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &row))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseWorkbook(&buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("dòng %d", 1))
}

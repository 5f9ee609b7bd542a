package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads the first sheet of an XLSX stream into rows. Column
// order is sku, name, category, unit, quantity, cost, retail, wholesale; a
// header row is detected and skipped. Blank
// lines are ignored; malformed numbers fail the whole parse so the user
// fixes the file instead of silently importing partial data.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
	}

	rows := make([]Row, 0, len(raw))
	for i, cells := range raw {
		num := i + 1
		if isBlank(cells) {
			continue
		}
		if i == 0 && isHeader(cells) {
			continue
		}
		row, err := parseRow(num, cells)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// isHeader recognises both the english template and the original
// Vietnamese one ("Mã SP", "Tên sản phẩm", ...).
func isHeader(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(cells[0]))
	return first == "sku" || strings.HasPrefix(first, "mã")
}

func parseRow(num int, cells []string) (Row, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	row := Row{
		Num:      num,
		SKU:      get(0),
		Name:     get(1),
		Category: get(2),
		Unit:     get(3),
	}
	var err error
	if row.Quantity, err = parseInt(get(4)); err != nil {
		return Row{}, fmt.Errorf("dòng %d: số lượng không hợp lệ (%q)", num, get(4))
	}
	if row.CostPrice, err = parseFloat(get(5)); err != nil {
		return Row{}, fmt.Errorf("dòng %d: giá vốn không hợp lệ (%q)", num, get(5))
	}
	if row.RetailPrice, err = parseFloat(get(6)); err != nil {
		return Row{}, fmt.Errorf("dòng %d: giá bán lẻ không hợp lệ (%q)", num, get(6))
	}
	if row.WholesalePrice, err = parseFloat(get(7)); err != nil {
		return Row{}, fmt.Errorf("dòng %d: giá bán sỉ không hợp lệ (%q)", num, get(7))
	}
	return row, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

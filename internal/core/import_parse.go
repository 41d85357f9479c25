package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ImportRow is one parsed and numerically valid spreadsheet row.
type ImportRow struct {
	Row       int // 1-based data row, header excluded
	StoreID   int
	Supplier  string
	DeviceID  int
	Quantity  int
	UnitCost  decimal.Decimal
	Reference string
	Notes     string
}

// RowError records why one row was skipped. Row errors never abort the
// import; they are collected and returned alongside the successes.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

var importRequiredColumns = []string{"store_id", "supplier", "device_id", "quantity", "unit_cost"}

// ParseImportFile parses a CSV or XLSX upload into rows. Malformed rows
// come back as RowErrors; only an unreadable file or a missing required
// column fails the whole parse.
func ParseImportFile(filename string, r io.Reader) ([]ImportRow, []RowError, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return parseXLSX(r)
	}
	return parseCSV(r)
}

func parseCSV(r io.Reader) ([]ImportRow, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, E(KindValidation, "import file is empty or unreadable")
	}
	cols, err := mapImportColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []ImportRow
	var rowErrs []RowError
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: fmt.Sprintf("malformed row: %v", err)})
			continue
		}
		row, rerr := parseImportRecord(record, cols, rowNum)
		if rerr != nil {
			rowErrs = append(rowErrs, *rerr)
			continue
		}
		rows = append(rows, *row)
	}
	return rows, rowErrs, nil
}

func parseXLSX(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, E(KindValidation, "import file is not a valid spreadsheet")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, E(KindValidation, "spreadsheet has no sheets")
	}
	allRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(allRows) == 0 {
		return nil, nil, E(KindValidation, "import file is empty or unreadable")
	}
	cols, err := mapImportColumns(allRows[0])
	if err != nil {
		return nil, nil, err
	}

	var rows []ImportRow
	var rowErrs []RowError
	for i, record := range allRows[1:] {
		rowNum := i + 1
		if isBlankRecord(record) {
			continue
		}
		row, rerr := parseImportRecord(record, cols, rowNum)
		if rerr != nil {
			rowErrs = append(rowErrs, *rerr)
			continue
		}
		rows = append(rows, *row)
	}
	return rows, rowErrs, nil
}

// mapImportColumns resolves the canonical header set to column indexes.
func mapImportColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range importRequiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, E(KindValidation, "import file is missing required column %q", required)
		}
	}
	return cols, nil
}

func parseImportRecord(record []string, cols map[string]int, rowNum int) (*ImportRow, *RowError) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	storeID, err := strconv.Atoi(field("store_id"))
	if err != nil {
		return nil, &RowError{Row: rowNum, Message: fmt.Sprintf("store_id %q is not a number", field("store_id"))}
	}
	supplier := field("supplier")
	if supplier == "" {
		return nil, &RowError{Row: rowNum, Message: "supplier is required"}
	}
	deviceID, err := strconv.Atoi(field("device_id"))
	if err != nil {
		return nil, &RowError{Row: rowNum, Message: fmt.Sprintf("device_id %q is not a number", field("device_id"))}
	}
	quantity, err := strconv.Atoi(field("quantity"))
	if err != nil {
		return nil, &RowError{Row: rowNum, Message: fmt.Sprintf("quantity %q is not a number", field("quantity"))}
	}
	if quantity < 1 {
		return nil, &RowError{Row: rowNum, Message: "quantity must be at least 1"}
	}
	unitCost, err := decimal.NewFromString(field("unit_cost"))
	if err != nil {
		return nil, &RowError{Row: rowNum, Message: fmt.Sprintf("unit_cost %q is not a number", field("unit_cost"))}
	}
	if unitCost.IsNegative() {
		return nil, &RowError{Row: rowNum, Message: "unit_cost must not be negative"}
	}

	return &ImportRow{
		Row:       rowNum,
		StoreID:   storeID,
		Supplier:  supplier,
		DeviceID:  deviceID,
		Quantity:  quantity,
		UnitCost:  unitCost,
		Reference: field("reference"),
		Notes:     field("notes"),
	}, nil
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

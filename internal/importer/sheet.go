package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data row of an uploaded sheet.
type Row struct {
	// Line is the 1-based line in the source, the header being line 1.
	Line    int
	Headers []string
	// Cells holds a value for every header; absent cells are "".
	Cells map[string]string
	// Numbers holds the unformatted value of workbook cells typed as
	// numbers, keyed by header. CSV rows have none.
	Numbers map[string]string
}

var ErrEmptySheet = errors.New("sheet has no header row")

// ReadRows reads the first sheet of an .xlsx upload, or a .csv upload, into
// rows keyed by header. Fully blank rows are dropped.
func ReadRows(r io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return readCSV(r)
	default:
		return readXLSX(r)
	}
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	sheet := sheets[0]
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read raw sheet %q: %w", sheet, err)
	}

	numbers := make([][]string, len(raw))
	for i, record := range raw {
		for j, value := range record {
			if value == "" {
				continue
			}
			typed, err := isNumberCell(f, sheet, j+1, i+1)
			if err != nil {
				return nil, err
			}
			if !typed {
				continue
			}
			if numbers[i] == nil {
				numbers[i] = make([]string, len(record))
			}
			numbers[i][j] = value
		}
	}

	return toRows(records, numbers)
}

// isNumberCell reports whether the cell stores a number. Cells without a type
// attribute are numbers in OOXML.
func isNumberCell(f *excelize.File, sheet string, col, row int) (bool, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, fmt.Errorf("cell name: %w", err)
	}

	cellType, err := f.GetCellType(sheet, cell)
	if err != nil {
		return false, fmt.Errorf("cell type %s: %w", cell, err)
	}

	return cellType == excelize.CellTypeUnset || cellType == excelize.CellTypeNumber, nil
}

func readCSV(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)

	// Spreadsheets exported in pt-BR locales separate with ';'.
	firstLine, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("peek csv: %w", err)
	}
	if i := bytes.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return toRows(records, nil)
}

// toRows keys records by the header row. numbers, when set, is indexed like
// records and holds the raw value of number cells, "" elsewhere.
func toRows(records [][]string, numbers [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	headers := make([]string, 0, len(records[0]))
	seen := map[string]bool{}
	for _, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			// keep column positions aligned; such columns are never mapped
			headers = append(headers, "")
			continue
		}
		seen[h] = true
		headers = append(headers, h)
	}
	if len(seen) == 0 {
		return nil, ErrEmptySheet
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}

		var rowNumbers []string
		if i+1 < len(numbers) {
			rowNumbers = numbers[i+1]
		}

		row := Row{
			Line:    i + 2,
			Headers: make([]string, 0, len(seen)),
			Cells:   make(map[string]string, len(seen)),
			Numbers: map[string]string{},
		}
		for col, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if col < len(record) {
				value = strings.TrimSpace(record[col])
			}
			row.Headers = append(row.Headers, h)
			row.Cells[h] = value
			if col < len(rowNumbers) && rowNumbers[col] != "" {
				row.Numbers[h] = rowNumbers[col]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

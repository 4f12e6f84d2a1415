package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Produtos"

var templateExample = map[Field]any{
	FieldCode:      "0001",
	FieldName:      "Camiseta basica",
	FieldSupplier:  "Malharia Sul",
	FieldSku:       "CAM-BAS-P",
	FieldColor:     "Azul",
	FieldSize:      "P",
	FieldStock:     12,
	FieldCostPrice: "10,50",
	FieldSalePrice: "20,00",
	FieldMarkup:    "",
	FieldBarcode:   "7891234567895",
	FieldYear:      2024,
}

// WriteTemplate writes an .xlsx workbook whose header row lists every
// recognised column, followed by one example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("new header style: %w", err)
	}

	header := make([]any, 0, len(Fields))
	example := make([]any, 0, len(Fields))
	for _, field := range Fields {
		header = append(header, TemplateHeader(field))
		example = append(example, templateExample[field])
	}

	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return fmt.Errorf("write example row: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(Fields))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetCellStyle(templateSheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}
	if err := f.SetColWidth(templateSheet, "A", last, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}

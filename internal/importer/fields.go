package importer

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

// Field is a product attribute a spreadsheet column can feed.
type Field string

const (
	FieldCode      Field = "code"
	FieldName      Field = "name"
	FieldSupplier  Field = "supplier"
	FieldSku       Field = "sku"
	FieldColor     Field = "color"
	FieldSize      Field = "size"
	FieldStock     Field = "stock"
	FieldCostPrice Field = "cost_price"
	FieldSalePrice Field = "sale_price"
	FieldMarkup    Field = "markup"
	FieldBarcode   Field = "barcode"
	FieldYear      Field = "year"
)

// Fields lists every field in template column order.
var Fields = []Field{
	FieldCode, FieldName, FieldSupplier, FieldSku, FieldColor, FieldSize,
	FieldStock, FieldCostPrice, FieldSalePrice, FieldMarkup, FieldBarcode, FieldYear,
}

// aliases are already folded with FoldHeader. The first alias of each field
// is the header written to the import template.
var aliases = map[Field][]string{
	FieldCode:      {"codigo", "cod", "code", "product code"},
	FieldName:      {"nome", "produto", "descricao", "name", "product"},
	FieldSupplier:  {"fornecedor", "supplier", "vendor"},
	FieldSku:       {"sku", "referencia", "ref"},
	FieldColor:     {"cor", "color", "colour"},
	FieldSize:      {"tamanho", "tam", "size"},
	FieldStock:     {"estoque", "quantidade", "qtd", "qtde", "stock", "quantity", "qty"},
	FieldCostPrice: {"custo", "preco custo", "preco de custo", "valor custo", "cost", "cost price"},
	FieldSalePrice: {"venda", "preco venda", "preco de venda", "preco", "valor venda", "price", "sale price"},
	FieldMarkup:    {"variacao", "markup", "margem", "margin"},
	FieldBarcode:   {"codigo de barras", "cod barras", "barras", "ean", "gtin", "barcode"},
	FieldYear:      {"ano", "year"},
}

var aliasIndex = func() map[string]Field {
	idx := make(map[string]Field)
	for field, names := range aliases {
		for _, name := range names {
			idx[name] = field
		}
	}
	return idx
}()

// FieldForHeader resolves a raw column header to a field.
func FieldForHeader(header string) (Field, bool) {
	f, ok := aliasIndex[FoldHeader(header)]
	return f, ok
}

// TemplateHeader is the column name written for f in the import template.
func TemplateHeader(f Field) string {
	return strings.ToUpper(aliases[f][0])
}

// Record is a row reduced to recognised fields. Missing fields are "".
type Record struct {
	text map[Field]string
	// numbers holds the unformatted value of fields read from workbook
	// cells typed as numbers. "1.234" there is one point two three four.
	numbers map[Field]string
}

// NewRecord maps a row's cells onto fields. Unrecognised columns are ignored;
// when two columns feed the same field the first non-empty value wins.
func NewRecord(row Row) Record {
	rec := Record{text: map[Field]string{}, numbers: map[Field]string{}}
	for _, header := range row.Headers {
		field, ok := FieldForHeader(header)
		if !ok {
			continue
		}
		value := strings.TrimSpace(row.Cells[header])
		if value == "" || rec.text[field] != "" {
			continue
		}
		rec.text[field] = value
		if n, ok := row.Numbers[header]; ok {
			rec.numbers[field] = n
		}
	}
	return rec
}

// Text returns the value of f as it appeared in the sheet.
func (r Record) Text(f Field) string {
	return r.text[f]
}

func (r Record) number(f Field) decimal.Decimal {
	if n, ok := r.numbers[f]; ok {
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return ParseDecimal(r.text[f])
}

func (r Record) year() *int {
	if _, ok := r.numbers[FieldYear]; !ok && !strings.ContainsFunc(r.text[FieldYear], unicode.IsDigit) {
		return nil
	}
	return fitYear(r.number(FieldYear))
}

// Product builds the product a record describes. Id, timestamps and, when
// the record has none, the code are left for the caller. Numbers a product
// column cannot hold read as zero, or no year.
func (r Record) Product() model.Product {
	cost := fitPrice(r.number(FieldCostPrice))
	sale := fitPrice(r.number(FieldSalePrice))

	markup := r.text[FieldMarkup]
	if markup == "" {
		markup = model.ComputeMarkup(cost, sale)
	}

	return model.Product{
		Code:      r.text[FieldCode],
		Name:      r.text[FieldName],
		Supplier:  r.text[FieldSupplier],
		Sku:       r.text[FieldSku],
		Color:     r.text[FieldColor],
		Size:      r.text[FieldSize],
		Stock:     fitInt(r.number(FieldStock)),
		CostPrice: cost,
		SalePrice: sale,
		Markup:    markup,
		Barcode:   r.text[FieldBarcode],
		Year:      r.year(),
	}
}

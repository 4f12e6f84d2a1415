// Package repotest provides in-memory implementations of the repository
// interfaces for tests.
package repotest

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

// Store holds the state shared by every fake repository.
type Store struct {
	mu sync.Mutex

	products      map[int64]model.Product
	nextProductID int64

	seqLast   int64
	seqCalled bool

	suppliers      map[int64]model.Supplier
	nextSupplierID int64

	users      map[int64]model.User
	nextUserID int64

	outbox []outboxEntry

	failures map[string]error
	writes   int
}

func NewStore() *Store {
	return &Store{
		products:  map[int64]model.Product{},
		seqLast:   1,
		suppliers: map[int64]model.Supplier{},
		users:     map[int64]model.User{},
		failures:  map[string]error{},
	}
}

// FailOn makes every later call to the named repository method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Writes counts successful mutating product calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Products returns every stored product ordered by id.
func (s *Store) Products() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedProducts()
}

// Outbox returns every outbox message written so far.
func (s *Store) Outbox() []repository.CreateOutboxMsgParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]repository.CreateOutboxMsgParams, 0, len(s.outbox))
	for _, e := range s.outbox {
		msgs = append(msgs, e.params)
	}
	return msgs
}

// PendingOutbox counts outbox messages not yet marked processed.
func (s *Store) PendingOutbox() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.outbox {
		if !e.processed {
			n++
		}
	}
	return n
}

// OutboxErrors returns the relay errors recorded on processed messages.
func (s *Store) OutboxErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []string
	for _, e := range s.outbox {
		if e.err != nil {
			errs = append(errs, *e.err)
		}
	}
	return errs
}

// OutboxTopics returns the topics of the written outbox messages in order.
func (s *Store) OutboxTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]string, 0, len(s.outbox))
	for _, msg := range s.outbox {
		topics = append(topics, msg.params.Topic)
	}
	return topics
}

func (s *Store) fail(method string) error {
	if err, ok := s.failures[method]; ok {
		return err
	}
	return nil
}

func (s *Store) sortedProducts() []model.Product {
	products := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b model.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return products
}

func (s *Store) codeTaken(code string, exceptID int64) bool {
	for _, p := range s.products {
		if p.Code == code && p.ID != exceptID {
			return true
		}
	}
	return false
}

// DB is a db.DB whose transactions run the callback directly. A failed
// transaction restores products and outbox messages; the code sequence is left
// as is, like a Postgres sequence. FailOn("Commit") fails a transaction after
// its callback succeeded. Raw SQL is not supported.
type DB struct {
	S *Store
}

var _ db.DB = DB{}

func (DB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("repotest: raw SQL is not supported")
}

func (DB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("repotest: raw SQL is not supported")
}

func (DB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("repotest: raw SQL is not supported")
}

func (d DB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	if d.S == nil {
		return txFunc(d)
	}

	products, outbox := d.S.snapshot()
	err := txFunc(d)
	if err == nil {
		d.S.mu.Lock()
		err = d.S.fail("Commit")
		d.S.mu.Unlock()
	}
	if err != nil {
		d.S.rollback(products, outbox)
		return err
	}
	return nil
}

func (s *Store) snapshot() (map[int64]model.Product, []outboxEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.products), slices.Clone(s.outbox)
}

func (s *Store) rollback(products map[int64]model.Product, outbox []outboxEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products, s.outbox = products, outbox
}

// ProductRepository

var _ repository.ProductRepository = (*ProductRepository)(nil)

type ProductRepository struct {
	S *Store
}

func (r *ProductRepository) WithDB(db.DB) repository.ProductRepository {
	return r
}

func (r *ProductRepository) ListProducts(_ context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("ListProducts"); err != nil {
		return nil, err
	}

	name := strings.ToLower(params.Name)
	products := []model.Product{}
	for _, p := range r.S.sortedProducts() {
		if name == "" || strings.Contains(strings.ToLower(p.Name), name) {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *ProductRepository) GetProductByID(_ context.Context, id int64) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("GetProductByID"); err != nil {
		return model.Product{}, err
	}

	p, ok := r.S.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("get product: %w", apperr.ProductNotFoundErr)
	}
	return p, nil
}

func (r *ProductRepository) GetProductByCode(_ context.Context, code string) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("GetProductByCode"); err != nil {
		return model.Product{}, err
	}

	for _, p := range r.S.products {
		if p.Code == code {
			return p, nil
		}
	}
	return model.Product{}, fmt.Errorf("get product: %w", apperr.ProductNotFoundErr)
}

func (r *ProductRepository) CreateProduct(_ context.Context, product model.Product) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("CreateProduct"); err != nil {
		return model.Product{}, err
	}

	if r.S.codeTaken(product.Code, 0) {
		return model.Product{}, fmt.Errorf("create product: %w", apperr.DuplicateCodeErr)
	}

	r.S.nextProductID++
	now := time.Now()
	product.ID = r.S.nextProductID
	product.CreatedAt = now
	product.UpdatedAt = now
	r.S.products[product.ID] = product
	r.S.writes++
	return product, nil
}

func (r *ProductRepository) RestoreProduct(_ context.Context, product model.Product) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("RestoreProduct"); err != nil {
		return model.Product{}, err
	}

	if r.S.codeTaken(product.Code, 0) {
		return model.Product{}, fmt.Errorf("restore product: %w", apperr.DuplicateCodeErr)
	}
	if _, ok := r.S.products[product.ID]; ok {
		return model.Product{}, fmt.Errorf("restore product: id %d already exists", product.ID)
	}

	product.UpdatedAt = time.Now()
	r.S.products[product.ID] = product
	r.S.writes++
	return product, nil
}

func (r *ProductRepository) UpdateProduct(_ context.Context, product model.Product) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("UpdateProduct"); err != nil {
		return model.Product{}, err
	}

	current, ok := r.S.products[product.ID]
	if !ok {
		return model.Product{}, fmt.Errorf("update product: %w", apperr.ProductNotFoundErr)
	}
	if r.S.codeTaken(product.Code, product.ID) {
		return model.Product{}, fmt.Errorf("update product: %w", apperr.DuplicateCodeErr)
	}

	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now()
	r.S.products[product.ID] = product
	r.S.writes++
	return product, nil
}

func (r *ProductRepository) UpdateProductColumns(_ context.Context, params repository.UpdateProductColumnsParams) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("UpdateProductColumns"); err != nil {
		return model.Product{}, err
	}

	p, ok := r.S.products[params.ID]
	if !ok {
		return model.Product{}, fmt.Errorf("update product columns: %w", apperr.ProductNotFoundErr)
	}

	for column, value := range params.Values {
		if err := setColumn(&p, column, value); err != nil {
			return model.Product{}, err
		}
	}
	if r.S.codeTaken(p.Code, p.ID) {
		return model.Product{}, fmt.Errorf("update product columns: %w", apperr.DuplicateCodeErr)
	}

	p.UpdatedAt = time.Now()
	r.S.products[p.ID] = p
	r.S.writes++
	return p, nil
}

func (r *ProductRepository) DeleteProduct(_ context.Context, id int64) (model.Product, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("DeleteProduct"); err != nil {
		return model.Product{}, err
	}

	product, ok := r.S.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("delete product: %w", apperr.ProductNotFoundErr)
	}
	delete(r.S.products, id)
	r.S.writes++
	return product, nil
}

func (r *ProductRepository) DeleteAllProducts(context.Context) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("DeleteAllProducts"); err != nil {
		return 0, err
	}

	n := int64(len(r.S.products))
	r.S.products = map[int64]model.Product{}
	r.S.writes++
	return n, nil
}

func (r *ProductRepository) MaxNumericCode(context.Context) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("MaxNumericCode"); err != nil {
		return 0, err
	}

	var maxCode int64
	for _, p := range r.S.products {
		if n, ok := allocator.Parse(p.Code); ok && n > maxCode {
			maxCode = n
		}
	}
	return maxCode, nil
}

func setColumn(p *model.Product, column repository.ProductColumn, value any) error {
	var ok bool
	switch column {
	case repository.ProductColumnCode:
		p.Code, ok = value.(string)
	case repository.ProductColumnName:
		p.Name, ok = value.(string)
	case repository.ProductColumnSupplier:
		p.Supplier, ok = value.(string)
	case repository.ProductColumnSku:
		p.Sku, ok = value.(string)
	case repository.ProductColumnColor:
		p.Color, ok = value.(string)
	case repository.ProductColumnSize:
		p.Size, ok = value.(string)
	case repository.ProductColumnMarkup:
		p.Markup, ok = value.(string)
	case repository.ProductColumnBarcode:
		p.Barcode, ok = value.(string)
	case repository.ProductColumnStock:
		p.Stock, ok = value.(int)
	case repository.ProductColumnCostPrice:
		p.CostPrice, ok = decimalValue(value)
	case repository.ProductColumnSalePrice:
		p.SalePrice, ok = decimalValue(value)
	case repository.ProductColumnYear:
		p.Year, ok = value.(*int)
	}
	if !ok {
		return fmt.Errorf("repotest: bad value %T for column %s", value, column)
	}
	return nil
}

func decimalValue(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

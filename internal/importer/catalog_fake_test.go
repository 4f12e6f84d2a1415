package importer_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products []model.Product
	nextCode int
	finished []model.ImportProgress

	// failInsertAt makes the n-th Insert call (1-based) return insertErr.
	failInsertAt int
	insertErr    error
	inserts      int
}

func (c *fakeCatalog) FindByCode(_ context.Context, code string) (model.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Code == code {
			return p, true, nil
		}
	}
	return model.Product{}, false, nil
}

func (c *fakeCatalog) Insert(_ context.Context, p model.Product, allocateCode bool) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inserts++
	if c.failInsertAt > 0 && c.inserts == c.failInsertAt {
		return model.Product{}, c.insertErr
	}

	if allocateCode {
		c.nextCode++
		p.Code = fmt.Sprintf("%04d", c.nextCode)
	}
	for _, existing := range c.products {
		if existing.Code == p.Code {
			return model.Product{}, fmt.Errorf("insert product: %w", apperr.DuplicateCodeErr)
		}
	}

	p.ID = int64(len(c.products) + 1)
	c.products = append(c.products, p)
	return p, nil
}

func (c *fakeCatalog) Update(_ context.Context, p model.Product) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.products {
		if existing.ID == p.ID {
			c.products[i] = p
			return p, nil
		}
	}
	return model.Product{}, apperr.ProductNotFoundErr
}

func (c *fakeCatalog) ImportFinished(_ context.Context, progress model.ImportProgress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, progress)
	return nil
}

func (c *fakeCatalog) byCode(code string) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Code == code {
			return p, true
		}
	}
	return model.Product{}, false
}

func (c *fakeCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.products)
}

package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/event"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
)

func TestCreateProduct(t *testing.T) {
	t.Run("Should allocate increasing codes", func(t *testing.T) {
		f := newFixture(t)
		ctx := asUser(common)

		next, err := f.products.NextCode(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0001", next)

		first, err := f.products.CreateProduct(ctx, service.CreateProductParams{
			Name:      "Camiseta",
			CostPrice: decimal.RequireFromString("10.5"),
			SalePrice: decimal.RequireFromString("20"),
		})
		require.NoError(t, err)
		assert.Equal(t, "0001", first.Code)
		assert.Equal(t, "90.48%", first.Markup)

		second, err := f.products.CreateProduct(ctx, service.CreateProductParams{Name: "Bone"})
		require.NoError(t, err)
		assert.Equal(t, "0002", second.Code)

		assert.Equal(t, []string{event.TopicProductCreated, event.TopicProductCreated}, f.repos.Store.OutboxTopics())
	})

	t.Run("Should only let admins choose a code", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.products.CreateProduct(asUser(common), service.CreateProductParams{Code: "X1", Name: "A"})
		require.ErrorIs(t, err, apperr.PermissionDeniedErr)
		assert.Empty(t, f.repos.Store.Products())

		p, err := f.products.CreateProduct(asUser(admin), service.CreateProductParams{Code: "X1", Name: "A"})
		require.NoError(t, err)
		assert.Equal(t, "X1", p.Code)

		_, err = f.products.CreateProduct(asUser(admin), service.CreateProductParams{Code: "X1", Name: "B"})
		require.ErrorIs(t, err, apperr.DuplicateCodeErr)
		assert.Len(t, f.repos.Store.Products(), 1)
	})

	t.Run("Should allocate after a code chosen by an admin", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.products.CreateProduct(asUser(admin), service.CreateProductParams{Code: "0007", Name: "A"})
		require.NoError(t, err)

		p, err := f.products.CreateProduct(asUser(common), service.CreateProductParams{Name: "B"})
		require.NoError(t, err)
		assert.Equal(t, "0008", p.Code)
	})
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(common)

	for _, name := range []string{"Camiseta Azul", "Bone", "camiseta verde"} {
		_, err := f.products.CreateProduct(ctx, service.CreateProductParams{Name: name})
		require.NoError(t, err)
	}

	products, err := f.products.ListProducts(ctx, service.ListProductsParams{Name: " CAMISETA "})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Camiseta Azul", products[0].Name)

	all, err := f.products.ListProducts(ctx, service.ListProductsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.products.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
}

func TestUpdateProductField(t *testing.T) {
	f := newFixture(t)
	created, err := f.products.CreateProduct(asUser(common), service.CreateProductParams{
		Name:      "Camiseta",
		CostPrice: decimal.NewFromInt(10),
		SalePrice: decimal.NewFromInt(15),
	})
	require.NoError(t, err)

	update := func(ctx context.Context, field string, value any) (model.Product, error) {
		return f.products.UpdateProductField(ctx, service.UpdateProductFieldParams{
			ID:    created.ID,
			Field: field,
			Value: value,
		})
	}

	t.Run("Should reject unknown fields", func(t *testing.T) {
		_, err := update(asUser(admin), "id", 3)
		assert.ErrorIs(t, err, apperr.UnknownProductFieldErr)
	})

	t.Run("Should keep code and cost price for admins", func(t *testing.T) {
		_, err := update(asUser(common), "cost_price", "12")
		assert.ErrorIs(t, err, apperr.PermissionDeniedErr)

		_, err = update(asUser(common), "code", "9999")
		assert.ErrorIs(t, err, apperr.PermissionDeniedErr)

		p, err := update(asUser(admin), "cost_price", "R$ 12,00")
		require.NoError(t, err)
		assert.Equal(t, "12", p.CostPrice.String())
		assert.Equal(t, "25.00%", p.Markup)
	})

	t.Run("Should recompute markup on sale price edits", func(t *testing.T) {
		p, err := update(asUser(common), "sale_price", 24.0)
		require.NoError(t, err)
		assert.Equal(t, "24", p.SalePrice.String())
		assert.Equal(t, "100.00%", p.Markup)
	})

	t.Run("Should accept localized field names and numbers", func(t *testing.T) {
		p, err := update(asUser(common), "Estoque", "1.500")
		require.NoError(t, err)
		assert.Equal(t, 1500, p.Stock)

		p, err = update(asUser(common), "ano", nil)
		require.NoError(t, err)
		assert.Nil(t, p.Year)
	})

	t.Run("Should allocate after an edited code", func(t *testing.T) {
		p, err := update(asUser(admin), "code", "0050")
		require.NoError(t, err)
		assert.Equal(t, "0050", p.Code)

		next, err := f.products.CreateProduct(asUser(common), service.CreateProductParams{Name: "Bone"})
		require.NoError(t, err)
		assert.Equal(t, "0051", next.Code)
	})

	t.Run("Should reject an empty name", func(t *testing.T) {
		_, err := update(asUser(common), "name", "  ")
		assert.ErrorIs(t, err, apperr.ValidationErr)
	})

	t.Run("Should report missing products", func(t *testing.T) {
		_, err := f.products.UpdateProductField(asUser(common), service.UpdateProductFieldParams{
			ID:    999,
			Field: "name",
			Value: "x",
		})
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
	})
}

func TestDeleteAndUndo(t *testing.T) {
	t.Run("Should keep the last twenty deletions", func(t *testing.T) {
		f := newFixture(t)
		ctx := asUser(common)

		ids := make([]int64, 0, 21)
		for i := range 21 {
			p, err := f.products.CreateProduct(ctx, service.CreateProductParams{Name: fmt.Sprintf("P%d", i)})
			require.NoError(t, err)
			ids = append(ids, p.ID)
		}
		for _, id := range ids {
			_, err := f.products.DeleteProduct(ctx, id)
			require.NoError(t, err)
		}

		deleted := f.products.ListDeleted(ctx)
		require.Len(t, deleted, 20)
		assert.Equal(t, ids[20], deleted[0].ID)
		assert.Equal(t, ids[1], deleted[19].ID)

		restored, err := f.products.UndoDelete(ctx)
		require.NoError(t, err)
		assert.Equal(t, ids[20], restored.ID)
		assert.Equal(t, "0021", restored.Code)
		assert.Equal(t, "P20", restored.Name)

		assert.Len(t, f.products.ListDeleted(ctx), 19)
		assert.Len(t, f.repos.Store.Products(), 1)
		assert.Equal(t, event.TopicProductRestored, f.repos.Store.OutboxTopics()[len(f.repos.Store.OutboxTopics())-1])
	})

	t.Run("Should fail without writing when nothing was deleted", func(t *testing.T) {
		f := newFixture(t)
		writes := f.repos.Store.Writes()

		_, err := f.products.UndoDelete(asUser(common))
		require.ErrorIs(t, err, apperr.NothingToRestoreErr)
		assert.Equal(t, writes, f.repos.Store.Writes())
	})

	t.Run("Should leave the buffer alone when the delete fails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.products.DeleteProduct(asUser(common), 42)
		require.ErrorIs(t, err, apperr.ProductNotFoundErr)
		assert.Empty(t, f.products.ListDeleted(asUser(common)))
	})

	t.Run("Should restore the row as it was when deleted", func(t *testing.T) {
		f := newFixture(t)
		ctx := asUser(common)

		p, err := f.products.CreateProduct(ctx, service.CreateProductParams{Name: "Before"})
		require.NoError(t, err)
		_, err = f.products.UpdateProductField(ctx, service.UpdateProductFieldParams{ID: p.ID, Field: "name", Value: "After"})
		require.NoError(t, err)

		deleted, err := f.products.DeleteProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", deleted.Name)
		assert.Equal(t, "After", f.products.ListDeleted(ctx)[0].Name)

		restored, err := f.products.UndoDelete(ctx)
		require.NoError(t, err)
		assert.Equal(t, "After", restored.Name)
	})

	t.Run("Should keep the entry when its code was taken again", func(t *testing.T) {
		f := newFixture(t)
		ctx := asUser(admin)

		p, err := f.products.CreateProduct(ctx, service.CreateProductParams{Code: "A1", Name: "Old"})
		require.NoError(t, err)
		_, err = f.products.DeleteProduct(ctx, p.ID)
		require.NoError(t, err)
		_, err = f.products.CreateProduct(ctx, service.CreateProductParams{Code: "A1", Name: "New"})
		require.NoError(t, err)

		_, err = f.products.UndoDelete(ctx)
		require.ErrorIs(t, err, apperr.DuplicateCodeErr)
		assert.Len(t, f.products.ListDeleted(ctx), 1)
	})
}

func TestDeleteAllProducts(t *testing.T) {
	setup := func(t *testing.T) fixture {
		f := newFixture(t)
		f.addUser(t, "boss", "boss-pass", model.RoleAdmin)
		f.addUser(t, "clerk", "clerk-pass", model.RoleCommon)

		for _, name := range []string{"A", "B", "C"} {
			_, err := f.products.CreateProduct(asUser(common), service.CreateProductParams{Name: name})
			require.NoError(t, err)
		}
		return f
	}

	t.Run("Should reject wrong credentials and keep the catalog", func(t *testing.T) {
		f := setup(t)

		_, err := f.products.DeleteAllProducts(asUser(admin), service.DeleteAllProductsParams{
			Username: "boss",
			Password: "nope",
		})
		require.ErrorIs(t, err, apperr.InvalidCredentialsErr)

		_, err = f.products.DeleteAllProducts(asUser(admin), service.DeleteAllProductsParams{
			Username: "ghost",
			Password: "boss-pass",
		})
		require.ErrorIs(t, err, apperr.InvalidCredentialsErr)

		assert.Len(t, f.repos.Store.Products(), 3)
	})

	t.Run("Should reject non admin credentials", func(t *testing.T) {
		f := setup(t)

		_, err := f.products.DeleteAllProducts(asUser(admin), service.DeleteAllProductsParams{
			Username: "clerk",
			Password: "clerk-pass",
		})
		require.ErrorIs(t, err, apperr.PermissionDeniedErr)
		assert.Len(t, f.repos.Store.Products(), 3)
	})

	t.Run("Should keep the catalog and its codes when the wipe fails", func(t *testing.T) {
		f := setup(t)
		f.repos.Store.FailOn("Commit", apperr.StorageUnavailableErr)

		_, err := f.products.DeleteAllProducts(asUser(admin), service.DeleteAllProductsParams{
			Username: "boss",
			Password: "boss-pass",
		})
		require.ErrorIs(t, err, apperr.StorageUnavailableErr)
		assert.Len(t, f.repos.Store.Products(), 3)
		assert.NotContains(t, f.repos.Store.OutboxTopics(), event.TopicCatalogWiped)

		next, err := f.products.NextCode(asUser(common))
		require.NoError(t, err)
		assert.Equal(t, "0004", next)
	})

	t.Run("Should wipe the catalog and restart codes", func(t *testing.T) {
		f := setup(t)

		deleted, err := f.products.DeleteAllProducts(asUser(admin), service.DeleteAllProductsParams{
			Username: "boss",
			Password: "boss-pass",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		assert.Empty(t, f.repos.Store.Products())

		topics := f.repos.Store.OutboxTopics()
		assert.Equal(t, event.TopicCatalogWiped, topics[len(topics)-1])

		next, err := f.products.NextCode(asUser(common))
		require.NoError(t, err)
		assert.Equal(t, "0001", next)
	})
}

package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

func TestComputeMarkup(t *testing.T) {
	testCases := []struct {
		name string
		cost string
		sale string
		want string
	}{
		{name: "positive margin", cost: "10.50", sale: "20.00", want: "90.48%"},
		{name: "double", cost: "10", sale: "20", want: "100.00%"},
		{name: "loss", cost: "20", sale: "15", want: "-25.00%"},
		{name: "zero cost", cost: "0", sale: "15", want: "0.00%"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := model.ComputeMarkup(decimal.RequireFromString(tc.cost), decimal.RequireFromString(tc.sale))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnums(t *testing.T) {
	assert.NoError(t, model.ImportModeInsert.Validate())
	assert.NoError(t, model.ImportModeUpsert.Validate())
	assert.Error(t, model.ImportMode("merge").Validate())

	assert.NoError(t, model.RoleAdmin.Validate())
	assert.Error(t, model.Role("root").Validate())
}

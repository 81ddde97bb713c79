package api

import (
	"encoding/json"
	"testing"

	"simplebudget/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": "uuid-1", "c": null}`), &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("uuid-1"), v.B)
	assert.Equal(t, ID(""), v.C)

	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{"12", "uuid-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"uuid-1"}`, string(out))
}

func TestNormalizeTreeDerivesFromTransactions(t *testing.T) {
	raw := `[{"id":1,"name":"Food","budget":500,"subcategories":[
		{"id":2,"name":"Groceries","allotted":"300.00","spending":9999,"transactions":[
			{"id":3,"description":"Market","amount":42.5,"date":"2025-03-02T00:00:00"}
		]}]}]`
	var dto []CategoryDTO
	require.NoError(t, json.Unmarshal([]byte(raw), &dto))

	tree, err := NormalizeTree(dto)
	require.NoError(t, err)
	food := tree["Food"]
	assert.Equal(t, "1", food.ID)
	assert.Equal(t, int64(50000), food.Budget.Cents)
	assert.Equal(t, int64(30000), food.Items[0].Allotted.Cents)
	assert.Equal(t, int64(4250), food.Spent().Cents, "server spending figure must be ignored")
	tx := food.Items[0].Transactions[0]
	assert.Equal(t, "2", tx.SubcategoryID)
	assert.Equal(t, "2025-03-02", tx.Date.String())
	assert.NotEmpty(t, tx.Icon)
}

func TestNormalizeTreeRejectsBadDate(t *testing.T) {
	dto := []CategoryDTO{{Name: "Food", Subcategories: []SubcategoryDTO{{Name: "x", Transactions: []TransactionDTO{{ID: "1", Date: "yesterday"}}}}}}
	_, err := NormalizeTree(dto)
	assert.Error(t, err)
}

func TestNormalizeTreeRejectsDuplicateNames(t *testing.T) {
	dto := []CategoryDTO{
		{ID: "1", Name: "Food", Subcategories: []SubcategoryDTO{{ID: "2", Name: "Groceries", Transactions: []TransactionDTO{
			{ID: "3", Description: "Market", Amount: NewAmount(decimal.RequireFromString("42.50")), Date: "2025-03-02"},
		}}}},
		{ID: "5", Name: "Food"},
	}
	tree, err := NormalizeTree(dto)
	require.ErrorIs(t, err, core.ErrDuplicateCategory)
	assert.Nil(t, tree)
	assert.Contains(t, err.Error(), `"Food"`)
}

func TestAmountMarshalsAsNumber(t *testing.T) {
	req := CategoryRequest{Name: "Food"}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Food","budget":"12.50"}`), &req))
	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Food","budget":12.5}`, string(out))
}

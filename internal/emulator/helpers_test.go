package emulator

import (
	"strconv"
	"testing"

	"simplebudget/internal/api"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decimalFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func mustInt(t *testing.T, id api.ID) int64 {
	t.Helper()
	n, err := strconv.ParseInt(string(id), 10, 64)
	require.NoError(t, err)
	return n
}

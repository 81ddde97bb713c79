package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplebudget/internal/core"
)

func TestWriteMonthReplacesTable(t *testing.T) {
	s := New("Summary")
	ctx := context.Background()
	p := core.Period{Month: 3, Year: 2025}

	tree := core.Tree{"Food": {Name: "Food", Budget: core.Money{Cents: 1000}}}
	ref, err := s.WriteMonth(ctx, "Home", p, tree.Overview())
	require.NoError(t, err)
	assert.Equal(t, "mem:Summary!A1:E4", ref)

	ref, err = s.WriteMonth(ctx, "Home", p, core.Tree{}.Overview())
	require.NoError(t, err)
	assert.Equal(t, "mem:Summary!A1:E3", ref)

	table := s.Table("Summary")
	require.Len(t, table, 3)
	assert.Equal(t, "Total", table[2][0])
	assert.Equal(t, 2, s.Writes())
	assert.Empty(t, s.Table("Other"))
}

func TestWriteMonthToSheet(t *testing.T) {
	s := New("Summary")
	ctx := context.Background()
	p := core.Period{Month: 3, Year: 2025}

	ref, err := s.WriteMonthToSheet(ctx, "Home - March 2025", "Home", p, core.Tree{}.Overview())
	require.NoError(t, err)
	assert.Equal(t, "mem:Home - March 2025!A1:E3", ref)
	_, err = s.WriteMonth(ctx, "Home", p, core.Tree{}.Overview())
	require.NoError(t, err)

	assert.Equal(t, []string{"Home - March 2025", "Summary"}, s.Sheets())
}

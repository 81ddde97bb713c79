package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"simplebudget/internal/core"
	"simplebudget/internal/sheets"
)

// Store keeps the last table written per sheet name.
type Store struct {
	mu     sync.Mutex
	sheet  string
	tables map[string][][]string
	writes int
}

var _ sheets.SheetWriter = (*Store)(nil)

func New(sheetName string) *Store {
	return &Store{sheet: sheetName, tables: make(map[string][][]string)}
}

// WriteMonth replaces the default sheet's contents.
func (s *Store) WriteMonth(ctx context.Context, budgetName string, p core.Period, o core.Overview) (string, error) {
	return s.WriteMonthToSheet(ctx, s.sheet, budgetName, p, o)
}

// WriteMonthToSheet replaces the named sheet's contents and returns a
// synthetic range.
func (s *Store) WriteMonthToSheet(_ context.Context, sheet, budgetName string, p core.Period, o core.Overview) (string, error) {
	rows := sheets.Rows(budgetName, p, o)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[sheet] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1:E%d", sheet, len(rows)), nil
}

// Sheets lists the sheet names written so far.
func (s *Store) Sheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns a copy of what was last written to sheet.
func (s *Store) Table(sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[sheet]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Writes counts WriteMonth calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

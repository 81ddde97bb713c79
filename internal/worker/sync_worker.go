// Package worker keeps a spreadsheet in step with budgets: mutation events
// mark months dirty and a periodic flush rewrites each dirty month's sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"simplebudget/internal/api"
	"simplebudget/internal/cache"
	"simplebudget/internal/core"
	"simplebudget/internal/events"
	"simplebudget/internal/log"
	"simplebudget/internal/sheets"
)

const budgetNameTTL = 15 * time.Minute

// Fetcher is the slice of the API the worker reads through.
type Fetcher interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	FetchMonth(ctx context.Context, budgetID string, p core.Period) (core.Tree, error)
}

var _ Fetcher = (*api.Client)(nil)

type monthKey struct {
	BudgetID string
	Period   core.Period
}

// SheetsSync exports every month touched by a mutation to its own sheet.
type SheetsSync struct {
	api    Fetcher
	sheets sheets.SheetWriter
	logger *log.Logger
	now    func() time.Time
	names  *cache.LRUCache[string]

	mu    sync.Mutex
	dirty map[monthKey]struct{}
}

func NewSheetsSync(fetcher Fetcher, writer sheets.SheetWriter, logger *log.Logger, now func() time.Time) *SheetsSync {
	if logger == nil {
		logger = log.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &SheetsSync{
		api:    fetcher,
		sheets: writer,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    now,
		names:  cache.NewLRUCache[string](128, budgetNameTTL, cache.WithClock(now)),
		dirty:  make(map[monthKey]struct{}),
	}
}

// HandleMutation records which month an event touched. Events that carry
// no month, or a month that cannot exist, are acknowledged and ignored.
func (w *SheetsSync) HandleMutation(ctx context.Context, m events.Mutation) error {
	switch m.Kind {
	case events.KindDeleteBudget:
		w.forgetBudget(m.BudgetID)
		return nil
	case events.KindRenameBudget:
		w.names.Delete(m.BudgetID)
		return nil
	case events.KindCreateBudget, events.KindInviteMember, events.KindAcceptInvitation:
		return nil
	}

	p, err := core.NewPeriod(m.Month, m.Year)
	if err != nil || m.BudgetID == "" {
		w.logger.WarnContext(ctx, "Ignoring mutation without a month",
			log.FieldOperation, m.Kind,
			log.FieldBudgetID, m.BudgetID,
			log.FieldYear, m.Year,
			log.FieldMonth, m.Month)
		return nil
	}
	w.markDirty(monthKey{BudgetID: m.BudgetID, Period: p})
	w.logger.DebugContext(ctx, "Month marked dirty",
		log.FieldOperation, m.Kind,
		log.FieldBudgetID, m.BudgetID,
		log.FieldYear, p.Year,
		log.FieldMonth, p.Month)
	return nil
}

func (w *SheetsSync) markDirty(k monthKey) {
	w.mu.Lock()
	w.dirty[k] = struct{}{}
	w.mu.Unlock()
}

func (w *SheetsSync) forgetBudget(budgetID string) {
	w.mu.Lock()
	for k := range w.dirty {
		if k.BudgetID == budgetID {
			delete(w.dirty, k)
		}
	}
	w.mu.Unlock()
	w.names.Delete(budgetID)
}

// Pending is the number of months waiting for the next flush.
func (w *SheetsSync) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

// takeDirty empties the dirty set, oldest month first.
func (w *SheetsSync) takeDirty() []monthKey {
	w.mu.Lock()
	keys := make([]monthKey, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	w.dirty = make(map[monthKey]struct{})
	w.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].BudgetID != keys[j].BudgetID {
			return keys[i].BudgetID < keys[j].BudgetID
		}
		return keys[i].Period.Before(keys[j].Period)
	})
	return keys
}

// Flush exports every dirty month. Months that fail stay dirty for the next
// flush unless the budget is gone or no longer shared with us.
func (w *SheetsSync) Flush(ctx context.Context) error {
	keys := w.takeDirty()
	if len(keys) == 0 {
		return nil
	}

	var errs []error
	synced := 0
	for _, k := range keys {
		err := w.export(ctx, k)
		switch {
		case err == nil:
			synced++
		case api.IsNotFound(err) || api.HasStatus(err, http.StatusForbidden):
			w.logger.WarnContext(ctx, "Dropping month of an inaccessible budget",
				log.FieldBudgetID, k.BudgetID, log.FieldError, err)
			w.forgetBudget(k.BudgetID)
		default:
			w.markDirty(k)
			errs = append(errs, err)
		}
	}

	w.logger.InfoContext(ctx, "Sheets sync flushed",
		"total", len(keys),
		"synced", synced,
		"errors", len(errs))
	return errors.Join(errs...)
}

func (w *SheetsSync) export(ctx context.Context, k monthKey) error {
	name, err := w.budgetName(ctx, k.BudgetID)
	if err != nil {
		return err
	}
	tree, err := w.api.FetchMonth(ctx, k.BudgetID, k.Period)
	if err != nil {
		return fmt.Errorf("fetch %s for budget %s: %w", k.Period.Label(), k.BudgetID, err)
	}

	sheet := sheets.SheetTitle(name, k.Period)
	ref, err := w.sheets.WriteMonthToSheet(ctx, sheet, name, k.Period, tree.Overview())
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	w.logger.InfoContext(ctx, "Month synced",
		log.FieldBudgetID, k.BudgetID,
		log.FieldYear, k.Period.Year,
		log.FieldMonth, k.Period.Month,
		"sheets_ref", ref)
	return nil
}

// budgetName resolves a budget id through the name cache, refreshing it
// from the budget list on a miss.
func (w *SheetsSync) budgetName(ctx context.Context, id string) (string, error) {
	return w.names.GetOrLoad(id, func() (string, error) {
		budgets, err := w.api.ListBudgets(ctx)
		if err != nil {
			return "", fmt.Errorf("list budgets: %w", err)
		}
		name := ""
		for _, b := range budgets {
			w.names.Set(b.ID, b.Name)
			if b.ID == id {
				name = b.Name
			}
		}
		if name == "" {
			return "", &api.Error{Status: http.StatusNotFound, Detail: "Budget not found"}
		}
		return name, nil
	})
}

// StartupSync exports the current month of every budget, covering events
// published while the worker was down.
func (w *SheetsSync) StartupSync(ctx context.Context) error {
	budgets, err := w.api.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	current := core.PeriodOf(w.now())
	for _, b := range budgets {
		w.names.Set(b.ID, b.Name)
		w.markDirty(monthKey{BudgetID: b.ID, Period: current})
	}
	w.logger.InfoContext(ctx, "Startup sync scheduled", "budgets", len(budgets), log.FieldYear, current.Year, log.FieldMonth, current.Month)
	return w.Flush(ctx)
}

// Run flushes every interval until ctx is done.
func (w *SheetsSync) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
			w.names.CleanExpired()
		}
	}
}

package templates_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplebudget/internal/api"
	"simplebudget/internal/core"
	"simplebudget/internal/emulator"
	"simplebudget/internal/preference"
	"simplebudget/internal/session"
	"simplebudget/internal/templates"
)

var fixedNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*templates.Service, *preference.Memory) {
	t.Helper()
	prefs := preference.NewMemory()
	svc, err := templates.NewService(prefs, nil, func() time.Time { return fixedNow })
	require.NoError(t, err)
	return svc, prefs
}

func newSession(t *testing.T) *session.Store {
	t.Helper()
	srv := httptest.NewServer(emulator.NewRouter(emulator.NewStore(), emulator.Options{}))
	t.Cleanup(srv.Close)

	store := session.New(session.Config{
		API:         api.NewClient(srv.URL, api.StaticToken("alice"), api.WithTimeout(5*time.Second)),
		Preferences: preference.NewMemory(),
		Now:         func() time.Time { return fixedNow },
	})
	ctx := context.Background()
	require.NoError(t, store.Bootstrap(ctx, &core.Identity{ID: "alice"}))
	_, err := store.CreateBudget(ctx, "Home")
	require.NoError(t, err)
	return store
}

func TestBuiltins(t *testing.T) {
	svc, _ := newService(t)
	all, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "essentials", all[0].ID)
	assert.True(t, all[0].BuiltIn)
	require.Len(t, all[0].Categories, 3)
	assert.Equal(t, "Necessities", all[0].Categories[0].Name)
	assert.Len(t, all[0].Categories[0].Subcategories, 4)

	assert.Equal(t, "Household", all[1].Name)
	assert.Equal(t, "Food & Dining", all[1].Categories[2].Name)
}

func TestSelect(t *testing.T) {
	svc, _ := newService(t)
	tpl, err := svc.Get(context.Background(), "household")
	require.NoError(t, err)

	all, err := tpl.Select()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := tpl.Select("Food & Dining", "Home & Maintenance")
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "Home & Maintenance", some[0].Name)

	_, err = tpl.Select("Nope")
	assert.Error(t, err)
}

func TestGetByName(t *testing.T) {
	svc, _ := newService(t)
	tpl, err := svc.Get(context.Background(), "essentials")
	require.NoError(t, err)
	assert.Equal(t, "Essentials", tpl.Name)

	tpl, err = svc.Get(context.Background(), "HOUSEHOLD")
	require.NoError(t, err)
	assert.Equal(t, "household", tpl.ID)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, templates.ErrNotFound)
}

func TestSaveListDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tree := core.Tree{
		"Food": {ID: "1", Name: "Food", Budget: core.Money{Cents: 50000}, Items: []core.Subcategory{
			{ID: "2", Name: "Groceries", Allotted: core.Money{Cents: 30050}},
		}},
		"Rent": {ID: "3", Name: "Rent", Budget: core.Money{Cents: 120000}},
	}
	cats, err := templates.PresetsFromTree(tree, "Food")
	require.NoError(t, err)

	saved, err := svc.Save(ctx, "  My month ", core.Period{Month: 3, Year: 2025}, cats)
	require.NoError(t, err)
	assert.Equal(t, "custom_1742029200000", saved.ID)
	assert.Equal(t, "My month", saved.Name)
	assert.Equal(t, "Saved from March 2025", saved.Description)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	got := all[2]
	assert.False(t, got.BuiltIn)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, int64(50000), got.Categories[0].Budget.Cents)
	assert.Equal(t, int64(30050), got.Categories[0].Subcategories[0].Allotted.Cents)

	assert.ErrorIs(t, svc.Delete(ctx, "essentials"), templates.ErrBuiltIn)
	require.NoError(t, svc.Delete(ctx, saved.ID))
	assert.ErrorIs(t, svc.Delete(ctx, saved.ID), templates.ErrNotFound)

	_, err = svc.Save(ctx, " ", core.Period{Month: 3, Year: 2025}, cats)
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = svc.Save(ctx, "empty", core.Period{Month: 3, Year: 2025}, nil)
	assert.ErrorIs(t, err, templates.ErrNothingSelected)
}

func TestPresetsFromTreeUnknownCategory(t *testing.T) {
	_, err := templates.PresetsFromTree(core.Tree{}, "Food")
	assert.Error(t, err)
	_, err = templates.PresetsFromTree(core.Tree{})
	assert.ErrorIs(t, err, templates.ErrNothingSelected)
}

func TestApplyCreatesTreeAndReloadsOnce(t *testing.T) {
	svc, _ := newService(t)
	store := newSession(t)
	ctx := context.Background()

	tpl, err := svc.Get(ctx, "essentials")
	require.NoError(t, err)
	cats, err := tpl.Select("Necessities", "Savings")
	require.NoError(t, err)

	require.NoError(t, svc.Apply(ctx, store, tpl, cats))

	st := store.Snapshot()
	require.Len(t, st.Categories, 2)
	assert.Len(t, st.Categories["Necessities"].Items, 4)
	assert.Len(t, st.Categories["Savings"].Items, 3)
	assert.Empty(t, st.Operations)
}

func TestApplyRefusesExistingCategoryNames(t *testing.T) {
	svc, _ := newService(t)
	store := newSession(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCategory(ctx, core.CategoryInput{Name: "Savings", Budget: core.Money{Cents: 100}}))

	tpl, err := svc.Get(ctx, "essentials")
	require.NoError(t, err)
	cats, err := tpl.Select("Necessities", "Savings")
	require.NoError(t, err)

	err = svc.Apply(ctx, store, tpl, cats)
	require.ErrorIs(t, err, core.ErrDuplicateCategory)

	st := store.Snapshot()
	require.Len(t, st.Categories, 1, "nothing is created when a name collides")
	assert.Empty(t, st.Categories["Savings"].Items)
}

func TestApplyWithoutBudgetFails(t *testing.T) {
	svc, _ := newService(t)
	store := session.New(session.Config{Preferences: preference.NewMemory()})

	tpl, err := svc.Get(context.Background(), "essentials")
	require.NoError(t, err)
	err = svc.Apply(context.Background(), store, tpl, tpl.Categories)
	assert.ErrorIs(t, err, session.ErrNoActiveBudget)

	assert.ErrorIs(t, svc.Apply(context.Background(), store, tpl, nil), templates.ErrNothingSelected)
}

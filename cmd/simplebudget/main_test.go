package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplebudget/internal/emulator"
)

// setupEnv points the CLI at a fresh emulator with a sqlite preference
// file, so the last used budget survives between invocations.
func setupEnv(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(emulator.NewRouter(emulator.NewStore(), emulator.Options{}))
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("ACCESS_TOKEN", "alice")
	t.Setenv("IDENTITY_ID", "alice")
	t.Setenv("IDENTITY_EMAIL", "alice@example.com")
	t.Setenv("OAUTH_TOKEN_FILE", "")
	t.Setenv("PREFERENCES_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "prefs.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), args, &out, &errOut)
	return out.String(), err
}

// runAt runs a command line with the clock fixed at now.
func runAt(t *testing.T, now time.Time, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	r := newRunner(&out, &errOut)
	r.now = func() time.Time { return now }
	require.NoError(t, r.execute(context.Background(), args), "simplebudget %v", args)
	return out.String()
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "simplebudget %v", args)
	return out
}

func TestVersionNeedsNoConfig(t *testing.T) {
	t.Setenv("API_BASE_URL", "not a url")
	out := mustRun(t, "version")
	assert.Contains(t, out, "simplebudget dev")
}

func TestInvalidConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("PREFERENCES_BACKEND", "redis")
	_, err := run(t, "budgets", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid preferences backend")
}

func TestBudgetWorkflow(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "budgets", "list")
	assert.Contains(t, out, "No budgets yet")

	out = mustRun(t, "budgets", "create", "Home")
	assert.Contains(t, out, `Created budget "Home"`)
	mustRun(t, "budgets", "create", "Trip")

	out = mustRun(t, "budgets", "use", "home")
	assert.Contains(t, out, `Using budget "Home"`)

	out = mustRun(t, "budgets", "list")
	assert.Regexp(t, `\*\s+\S+\s+Home`, out)
	assert.NotRegexp(t, `\*\s+\S+\s+Trip`, out)

	out = mustRun(t, "budgets", "rename", "Trip", "Summer", "trip")
	assert.Contains(t, out, `Renamed "Trip" to "Summer trip"`)

	_, err := run(t, "budgets", "delete", "Summer trip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out = mustRun(t, "budgets", "delete", "Summer trip", "--yes")
	assert.Contains(t, out, `Deleted budget "Summer trip"`)
	assert.Contains(t, out, `Now using "Home"`)

	_, err = run(t, "budgets", "use", "Nope")
	require.Error(t, err)
}

func TestMonthWorkflow(t *testing.T) {
	setupEnv(t)
	const march = "March 2025"

	mustRun(t, "budgets", "create", "Home")
	mustRun(t, "category", "add", "Food", "500", "-p", march)
	mustRun(t, "subcategory", "add", "Food", "Groceries", "300", "-p", march)

	out := mustRun(t, "tx", "add", "Food/Groceries", "Weekly shop", "42.50", "-p", march)
	assert.Contains(t, out, `Recorded $42.50 for "Weekly shop" on 2025-03-01`)

	out = mustRun(t, "month", "-p", march, "--transactions")
	assert.Contains(t, out, "Home: March 2025")
	assert.Contains(t, out, "$500.00")
	assert.Contains(t, out, "$42.50 (9%)")
	assert.Contains(t, out, "$457.50")
	assert.Contains(t, out, "Weekly shop")

	// Other months start empty.
	out = mustRun(t, "month", "-p", "April 2025")
	assert.Contains(t, out, "No categories for this month.")

	out = mustRun(t, "export", "--dry-run", "-p", march)
	assert.Contains(t, out, "Home,March 2025")
	assert.Contains(t, out, "Food,500.00,300.00,42.50,457.50")
	assert.Contains(t, out, "Total,500.00,300.00,42.50,457.50")

	mustRun(t, "category", "edit", "food", "--name", "Groceries & Food", "--budget", "600", "-p", march)
	mustRun(t, "subcategory", "edit", "Groceries", "--allotted", "350", "-p", march)
	out = mustRun(t, "month", "-p", march)
	assert.Contains(t, out, "Groceries & Food")
	assert.Contains(t, out, "$350.00")

	mustRun(t, "subcategory", "delete", "Groceries & Food/Groceries", "-p", march)
	mustRun(t, "category", "delete", "Groceries & Food", "-p", march)
	out = mustRun(t, "month", "-p", march)
	assert.Contains(t, out, "No categories for this month.")
}

func TestTransactionDateDefaultsToToday(t *testing.T) {
	setupEnv(t)
	now := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

	runAt(t, now, "budgets", "create", "Home")
	runAt(t, now, "category", "add", "Food", "500")
	runAt(t, now, "subcategory", "add", "Food", "Groceries", "300")

	out := runAt(t, now, "tx", "add", "Groceries", "Bakery", "3.20")
	assert.Contains(t, out, `Recorded $3.20 for "Bakery" on 2025-03-14`)

	// Outside the current month the first day is used.
	runAt(t, now, "category", "add", "Food", "500", "-p", "February 2025")
	runAt(t, now, "subcategory", "add", "Food", "Groceries", "300", "-p", "February 2025")
	out = runAt(t, now, "tx", "add", "Groceries", "Bakery", "3.20", "-p", "February 2025")
	assert.Contains(t, out, `Recorded $3.20 for "Bakery" on 2025-02-01`)
}

func TestMonthInputErrors(t *testing.T) {
	setupEnv(t)
	mustRun(t, "budgets", "create", "Home")

	_, err := run(t, "category", "add", "Food", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")

	_, err = run(t, "subcategory", "add", "Missing", "Groceries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no category "Missing"`)

	_, err = run(t, "month", "-p", "Smarch 2025")
	require.Error(t, err)

	_, err = run(t, "tx", "delete", "999")
	require.Error(t, err)
}

func TestMonthWithoutBudget(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "month")
	require.ErrorIs(t, err, errNoBudget)

	out := mustRun(t, "month", "--months")
	assert.Contains(t, out, "*")
}

func TestTemplatesWorkflow(t *testing.T) {
	setupEnv(t)
	const april = "April 2025"
	mustRun(t, "budgets", "create", "Home")

	out := mustRun(t, "templates", "list")
	assert.Contains(t, out, "essentials")
	assert.Contains(t, out, "Essentials (built-in)")

	out = mustRun(t, "templates", "apply", "Essentials", "--only", "Savings, Necessities", "-p", april)
	assert.Contains(t, out, `Applied "Essentials" (2 categories) to April 2025`)

	out = mustRun(t, "month", "-p", april)
	assert.Contains(t, out, "Savings")
	assert.Contains(t, out, "Emergency Fund")
	assert.NotContains(t, out, "Fixed Expenses")

	out = mustRun(t, "templates", "save", "Lean", "--only", "Savings", "-p", april)
	assert.Contains(t, out, `Saved template "Lean"`)

	out = mustRun(t, "templates", "show", "Lean")
	assert.Contains(t, out, "Savings")
	assert.Contains(t, out, "Retirement")

	_, err := run(t, "templates", "delete", "essentials")
	require.Error(t, err)
}

func TestInvitationWorkflow(t *testing.T) {
	setupEnv(t)
	t.Setenv("INVITE_BASE_URL", "https://budget.example.com")
	mustRun(t, "budgets", "create", "Home")

	out := mustRun(t, "invite", "bob@example.com")
	assert.Contains(t, out, `Invited bob@example.com to "Home"`)
	assert.Contains(t, out, "https://budget.example.com/invite/")

	_, err := run(t, "invite", "not-an-email")
	require.Error(t, err)

	_, err = run(t, "invitation", "show", "bogus")
	require.Error(t, err)
}

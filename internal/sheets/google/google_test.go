package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"simplebudget/internal/core"
)

type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	lists   int
	added   []string
	cleared []string
	updates []gsheet.ValueRange
	paths   []string
	queries []string
}

func newFakeSheets(titles ...string) *fakeSheets {
	return &fakeSheets{titles: titles}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		f.lists++
		ss := gsheet.Spreadsheet{SpreadsheetId: "sheet-1"}
		for _, title := range f.titles {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr)
		f.paths = append(f.paths, path)
		f.queries = append(f.queries, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Summary!A1:E4"}`))
	default:
		http.Error(w, `{"error":{"code":404,"message":"unexpected"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-1", "", nil)
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_InvalidCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestWriteMonth(t *testing.T) {
	fake := newFakeSheets("Summary")
	c := newTestClient(t, fake)

	tree := core.Tree{"Food": {Name: "Food", Budget: core.Money{Cents: 50000}}}
	ref, err := c.WriteMonth(context.Background(), "Home", core.Period{Month: 3, Year: 2025}, tree.Overview())
	require.NoError(t, err)
	assert.Equal(t, "Summary!A1:E4", ref)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.added, "Summary already exists")
	require.Len(t, fake.cleared, 1)
	require.Len(t, fake.updates, 1)
	assert.Contains(t, fake.paths[0], "/v4/spreadsheets/sheet-1/values/")
	assert.Contains(t, fake.queries[0], "valueInputOption=USER_ENTERED")

	values := fake.updates[0].Values
	require.Len(t, values, 4)
	assert.Equal(t, []any{"Home", "March 2025"}, values[0])
	assert.Equal(t, []any{"Food", "500.00", "0.00", "0.00", "500.00"}, values[2])
	assert.Equal(t, "Total", values[3][0])
}

func TestWriteMonth_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))

	_, err := c.WriteMonth(context.Background(), "Home", core.Period{Month: 3, Year: 2025}, core.Tree{}.Overview())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list sheets")
	assert.Contains(t, err.Error(), "denied")
}

func TestWriteMonthToSheet_CreatesMissingSheetOnce(t *testing.T) {
	fake := newFakeSheets("Summary")
	c := newTestClient(t, fake)
	ctx := context.Background()
	p := core.Period{Month: 3, Year: 2025}

	_, err := c.WriteMonthToSheet(ctx, "Home - March 2025", "Home", p, core.Tree{}.Overview())
	require.NoError(t, err)
	_, err = c.WriteMonthToSheet(ctx, "Home - March 2025", "Home", p, core.Tree{}.Overview())
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"Home - March 2025"}, fake.added)
	assert.Equal(t, 1, fake.lists, "known titles are cached")
	require.Len(t, fake.cleared, 2)
	assert.Contains(t, fake.cleared[0], "'Home - March 2025'!A:E")
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Summary'", quoteSheet("Summary"))
	assert.Equal(t, "'Bob''s - May 2025'", quoteSheet("Bob's - May 2025"))
}

func TestWriteMonth_NoService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.WriteMonth(context.Background(), "Home", core.Period{Month: 3, Year: 2025}, core.Overview{})
	assert.EqualError(t, err, "sheets service not initialized")
}

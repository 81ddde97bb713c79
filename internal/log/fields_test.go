package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationFields(t *testing.T) {
	f := NewFields().
		WithOperation("create_category").
		WithScope("3", 2025, 3).
		WithTarget("").
		WithError(nil).
		WithComponent(ComponentSession)

	assert.Equal(t, LogFields{
		FieldOperation: "create_category",
		FieldBudgetID:  "3",
		FieldYear:      2025,
		FieldMonth:     3,
		FieldComponent: ComponentSession,
	}, f, "empty target and nil error add nothing")

	f.WithTarget("42").WithError(errors.New("boom"))
	assert.Equal(t, "42", f[FieldTargetID])
	assert.Equal(t, "boom", f[FieldError])

	slice := f.ToSlice()
	require.Len(t, slice, 2*len(f))
	for i := 0; i < len(slice); i += 2 {
		key, ok := slice[i].(string)
		require.True(t, ok)
		assert.Equal(t, f[key], slice[i+1])
	}
}

func TestHTTPFields(t *testing.T) {
	f := NewFields().
		WithHTTPRequest("GET", "/budgets", "year=2025", "curl/8").
		WithHTTPResponse(404, 12, false)

	assert.Equal(t, "/budgets", f[FieldPath])
	assert.Equal(t, "year=2025", f[FieldQuery])
	assert.Equal(t, "curl/8", f[FieldUserAgent])
	assert.Equal(t, 404, f[FieldStatusCode])
	assert.Equal(t, int64(12), f[FieldDuration])
	assert.Equal(t, false, f[FieldSuccess])
}

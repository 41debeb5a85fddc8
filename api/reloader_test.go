package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/pricing/store"
)

const reloadGrid = `
grids:
  - product_line: senior
    products: ["SENIOR 3011"]
    zones: [Z01]
    rows:
      - role: child
        bracket: "0-27"
        base: [%s, 2, 3, 4, 5, 6]
`

func writeGrid(t *testing.T, path, firstPrice string, mod time.Time) {
	t.Helper()
	body := []byte(fmt.Sprintf(reloadGrid, firstPrice))
	require.NoError(t, os.WriteFile(path, body, 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestGridReloader_ReloadsOnChange(t *testing.T) {
	// GIVEN: a reloader on an already imported file
	path := filepath.Join(t.TempDir(), "grid.yaml")
	base := time.Now().Add(-time.Hour)
	writeGrid(t, path, "10", base)

	m := store.NewMemory()
	r := NewGridReloader(m, path, nil, NewMetrics())
	ctx := context.Background()

	// THEN: nothing happens while the file is unchanged
	assert.False(t, r.CheckAndReload(ctx))
	assert.Zero(t, m.Len())

	// WHEN: the file is republished
	writeGrid(t, path, "12.5", base.Add(time.Minute))

	// THEN: the new row is imported once
	assert.True(t, r.CheckAndReload(ctx))
	assert.False(t, r.CheckAndReload(ctx))
	recs := m.Records(pricing.LineSenior, "SENIOR 3011", "Z01")
	require.Len(t, recs, 1)
	assert.Equal(t, "12.5", recs[0].Row.Base[0].Decimal.String())
}

func TestGridReloader_SkipsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	base := time.Now().Add(-time.Hour)
	writeGrid(t, path, "10", base)

	m := store.NewMemory()
	r := NewGridReloader(m, path, nil, nil)

	writeGrid(t, path, "-1", base.Add(time.Minute))
	assert.False(t, r.CheckAndReload(context.Background()))
	assert.Zero(t, m.Len())

	require.NoError(t, os.Remove(path))
	assert.False(t, r.CheckAndReload(context.Background()))
}

func TestGridReloader_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	writeGrid(t, path, "10", time.Now().Add(-time.Hour))

	r := NewGridReloader(store.NewMemory(), path, nil, nil)
	r.CheckInterval = 10 * time.Millisecond
	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}

// Package store provides in-memory tariff repository implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/premium-engine/pricing"
)

// =============================================================================
// MEMORY STORE - In-memory tariff table (for testing/dev/CLI)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	grids map[gridKey]map[pricing.TariffKey]pricing.TariffRow
	zones map[pricing.ProductLine]pricing.ZoneTable
}

type gridKey struct {
	Line    pricing.ProductLine
	Product string
	Zone    pricing.Zone
}

// NewMemory returns an empty table with the reference self-employed
// department zones loaded.
func NewMemory() *Memory {
	return &Memory{
		grids: make(map[gridKey]map[pricing.TariffKey]pricing.TariffRow),
		zones: map[pricing.ProductLine]pricing.ZoneTable{
			pricing.LineSelfEmployed: pricing.DefaultSelfEmployedZones(),
		},
	}
}

var (
	_ pricing.TariffRepository = (*Memory)(nil)
	_ pricing.TariffWriter     = (*Memory)(nil)
)

// ResolveZone looks the department up in the line's table, with the fixed
// senior rule as fallback.
func (m *Memory) ResolveZone(_ context.Context, postalCode string, line pricing.ProductLine) (pricing.Zone, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zone, ok := pricing.ResolveZone(postalCode, line, m.zones[line])
	return zone, ok, nil
}

// FetchTariffEntries returns the rows of q.Keys present in the grid.
func (m *Memory) FetchTariffEntries(_ context.Context, q pricing.TariffQuery) ([]pricing.TariffRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grid := m.grids[gridKey{Line: q.ProductLine, Product: q.ProductName, Zone: q.Zone}]
	result := make([]pricing.TariffRow, 0, len(q.Keys))
	for _, k := range q.Keys {
		if row, ok := grid[k]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

// PutTariffs adds or replaces rows. All records are checked before any is
// written.
func (m *Memory) PutTariffs(_ context.Context, records []pricing.TariffRecord) error {
	for _, rec := range records {
		if err := CheckRecord(rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		gk := gridKey{Line: rec.ProductLine, Product: rec.ProductName, Zone: rec.Zone}
		grid, ok := m.grids[gk]
		if !ok {
			grid = make(map[pricing.TariffKey]pricing.TariffRow)
			m.grids[gk] = grid
		}
		grid[rec.Row.Key()] = rec.Row
	}
	return nil
}

// PutZones replaces the department table of line.
func (m *Memory) PutZones(_ context.Context, line pricing.ProductLine, table pricing.ZoneTable) error {
	if !line.Valid() {
		return fmt.Errorf("put zones: unknown product line %q", line)
	}
	cp := make(pricing.ZoneTable, len(table))
	for dept, zone := range table {
		cp[dept] = zone
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[line] = cp
	return nil
}

// Records lists every row, sorted by grid then key, for inspection.
func (m *Memory) Records(line pricing.ProductLine, product string, zone pricing.Zone) []pricing.TariffRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pricing.TariffRecord
	for gk, grid := range m.grids {
		if (line != "" && gk.Line != line) || (product != "" && gk.Product != product) || (zone != "" && gk.Zone != zone) {
			continue
		}
		for _, row := range grid {
			out = append(out, pricing.TariffRecord{ProductLine: gk.Line, ProductName: gk.Product, Zone: gk.Zone, Row: row})
		}
	}
	SortRecords(out)
	return out
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, grid := range m.grids {
		n += len(grid)
	}
	return n
}

// =============================================================================
// SHARED HELPERS - also used by the SQLite store
// =============================================================================

// CheckRecord rejects records no tariff grid may contain.
func CheckRecord(rec pricing.TariffRecord) error {
	if !rec.ProductLine.Valid() {
		return fmt.Errorf("tariff record: unknown product line %q", rec.ProductLine)
	}
	if rec.ProductName == "" || rec.Zone == "" {
		return fmt.Errorf("tariff record: product and zone are required")
	}
	if !pricing.RoleAllowed(rec.ProductLine, rec.Row.Role) {
		return fmt.Errorf("tariff record: role %q not used by %s", rec.Row.Role, rec.ProductLine)
	}
	if rec.Row.Bracket == "" {
		return fmt.Errorf("tariff record: bracket is required")
	}
	if rec.Row.HospitalReinforcement.Valid && rec.ProductLine != pricing.LineSeniorPlus {
		return fmt.Errorf("tariff record %s: hospital reinforcement only exists on %s",
			rec.Row.Key(), pricing.LineSeniorPlus)
	}
	for i, p := range rec.Row.Base {
		if p.Valid && p.Decimal.IsNegative() {
			return fmt.Errorf("tariff record %s: negative price for option %d", rec.Row.Key(), i+1)
		}
	}
	for i, p := range rec.Row.Surcharge {
		if p.Valid && p.Decimal.IsNegative() {
			return fmt.Errorf("tariff record %s: negative surcharge for option %d",
				rec.Row.Key(), i+int(pricing.FirstSurchargeOption))
		}
	}
	if r := rec.Row.HospitalReinforcement; r.Valid && r.Decimal.IsNegative() {
		return fmt.Errorf("tariff record %s: negative hospital reinforcement", rec.Row.Key())
	}
	return nil
}

// SortRecords orders records by line, product, zone, role and youngest bracket first.
func SortRecords(recs []pricing.TariffRecord) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.ProductLine != b.ProductLine {
			return a.ProductLine < b.ProductLine
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Row.Role != b.Row.Role {
			return a.Row.Role < b.Row.Role
		}
		return bracketStart(a.Row.Bracket) < bracketStart(b.Row.Bracket)
	})
}

// bracketStart is the lowest age a bracket covers ("0-59" -> 0, "100+" -> 100).
func bracketStart(b pricing.Bracket) int {
	n := 0
	for _, c := range string(b) {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

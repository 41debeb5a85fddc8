/*
store.go - Tariff repository contract

PURPOSE:
  Defines the interface between the rating engine and wherever tariff data
  lives. The engine never knows whether rows come from an in-memory table,
  SQLite or a remote service.

KEY INTERFACES:
  ZoneSource:       postal code -> zone for one product line
  TariffSource:     batch fetch of tariff rows for one (product, zone) grid
  TariffRepository: both, what Calculator consumes
  TariffWriter:     grid import, implemented by the stores

BATCHING:
  FetchTariffEntries receives every (role, bracket) key of one quote at once.
  A quote therefore costs exactly two round trips (zone + rows) whatever the
  family size. Missing keys are simply absent from the result; the engine
  turns that into a TariffRowNotFoundError instead of asking again.

NULL CONTRACT (TariffRow):
  base option price NULL       -> 0
  surcharge option price NULL  -> 0 (table present if any column is set)
  hospital reinforcement NULL  -> absent

IMPLEMENTATIONS:
  - pricing/store/memory.go: In-memory for tests and the CLI
  - store/sqlite/sqlite.go:  SQLite

SEE ALSO:
  - calculator.go: Sole consumer of TariffRepository
  - factory/tariff.go: Builds TariffRecords from grid files
*/
package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPOSITORY INTERFACES
// =============================================================================

type ZoneSource interface {
	// ResolveZone returns false when the department has no zone for line.
	ResolveZone(ctx context.Context, postalCode string, line ProductLine) (Zone, bool, error)
}

type TariffSource interface {
	// FetchTariffEntries returns the rows matching q.Keys. Keys without a row
	// are omitted, never an error.
	FetchTariffEntries(ctx context.Context, q TariffQuery) ([]TariffRow, error)
}

type TariffRepository interface {
	ZoneSource
	TariffSource
}

// TariffWriter loads grid data into a store.
type TariffWriter interface {
	// PutTariffs inserts or replaces rows atomically.
	PutTariffs(ctx context.Context, records []TariffRecord) error

	// PutZones replaces the department table of line.
	PutZones(ctx context.Context, line ProductLine, table ZoneTable) error
}

// =============================================================================
// QUERY / ROW
// =============================================================================

type TariffQuery struct {
	ProductLine ProductLine
	ProductName string
	Zone        Zone
	Keys        []TariffKey
}

// TariffRow is the wire shape of one tariff row.
type TariffRow struct {
	Role                  Role
	Bracket               Bracket
	Base                  [OptionCount]decimal.NullDecimal
	Surcharge             [SurchargeOptionCount]decimal.NullDecimal
	HospitalReinforcement decimal.NullDecimal
}

func (r TariffRow) Key() TariffKey { return TariffKey{Role: r.Role, Bracket: r.Bracket} }

// Entry applies the null contract and returns the priced entry.
func (r TariffRow) Entry() TariffEntry {
	var e TariffEntry
	for i, p := range r.Base {
		e.Base[i] = decimal.NewNullDecimal(orZero(p))
	}
	hasSurcharge := false
	var s SurchargePrices
	for i, p := range r.Surcharge {
		if p.Valid {
			hasSurcharge = true
		}
		s[i] = orZero(p)
	}
	if hasSurcharge {
		e.Surcharge = &s
	}
	e.HospitalReinforcement = r.HospitalReinforcement
	return e
}

// RowFromEntry is the inverse of Entry for stores that keep entries.
func RowFromEntry(key TariffKey, e TariffEntry) TariffRow {
	row := TariffRow{Role: key.Role, Bracket: key.Bracket, Base: e.Base}
	if e.Surcharge != nil {
		for i, p := range e.Surcharge {
			row.Surcharge[i] = decimal.NewNullDecimal(p)
		}
	}
	row.HospitalReinforcement = e.HospitalReinforcement
	return row
}

// TariffRecord is a row together with the grid it belongs to.
type TariffRecord struct {
	ProductLine ProductLine
	ProductName string
	Zone        Zone
	Row         TariffRow
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/pricing/store"
)

func record(line pricing.ProductLine, product string, zone pricing.Zone, role pricing.Role, bracket pricing.Bracket, base int64) pricing.TariffRecord {
	r := pricing.TariffRow{Role: role, Bracket: bracket}
	for i := range r.Base {
		r.Base[i] = decimal.NewNullDecimal(decimal.NewFromInt(base + int64(i)))
	}
	return pricing.TariffRecord{ProductLine: line, ProductName: product, Zone: zone, Row: r}
}

func TestMemory_FetchReturnsOnlyRequestedKeys(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.PutTariffs(ctx, []pricing.TariffRecord{
		record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RolePolicyholder, "66", 100),
		record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RoleSpouse, "64", 90),
		record(pricing.LineSenior, "SENIOR 3011", "Z02", pricing.RolePolicyholder, "66", 120),
	}))

	rows, err := m.FetchTariffEntries(ctx, pricing.TariffQuery{
		ProductLine: pricing.LineSenior,
		ProductName: "SENIOR 3011",
		Zone:        "Z01",
		Keys: []pricing.TariffKey{
			{Role: pricing.RolePolicyholder, Bracket: "66"},
			{Role: pricing.RoleChild, Bracket: "0-27"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1, "missing keys are omitted, not errors")
	assert.Equal(t, pricing.RolePolicyholder, rows[0].Role)
	assert.True(t, rows[0].Base[0].Decimal.Equal(decimal.NewFromInt(100)))
}

func TestMemory_PutTariffsReplaces(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutTariffs(ctx, []pricing.TariffRecord{record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RoleChild, "0-27", 10)}))
	require.NoError(t, m.PutTariffs(ctx, []pricing.TariffRecord{record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RoleChild, "0-27", 20)}))

	assert.Equal(t, 1, m.Len())
	recs := m.Records(pricing.LineSenior, "", "")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Row.Base[0].Decimal.Equal(decimal.NewFromInt(20)))
}

func TestMemory_PutTariffsAtomicOnInvalidRecord(t *testing.T) {
	m := store.NewMemory()

	bad := record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RolePolicyholder, "66", 100)
	bad.Row.HospitalReinforcement = decimal.NewNullDecimal(decimal.NewFromInt(15))

	err := m.PutTariffs(context.Background(), []pricing.TariffRecord{
		record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RoleSpouse, "66", 100),
		bad,
	})
	assert.ErrorContains(t, err, "hospital reinforcement")
	assert.Zero(t, m.Len(), "nothing written when one record is invalid")
}

func TestCheckRecord(t *testing.T) {
	ok := record(pricing.LineSelfEmployed, "TNS FORMULES 2051", "Z3", pricing.RolePolicyholderAlone, "40", 50)
	assert.NoError(t, store.CheckRecord(ok))

	wrongRole := record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RolePolicyholderAlone, "66", 50)
	assert.ErrorContains(t, store.CheckRecord(wrongRole), "role")

	negative := record(pricing.LineSenior, "SENIOR 3011", "Z01", pricing.RoleSpouse, "66", 50)
	negative.Row.Surcharge[1] = decimal.NewNullDecimal(decimal.NewFromInt(-1))
	assert.ErrorContains(t, store.CheckRecord(negative), "option 4")

	reinforced := record(pricing.LineSeniorPlus, "SENIOR PLUS 4121", "AM", pricing.RoleSpouse, "66", 50)
	reinforced.Row.HospitalReinforcement = decimal.NewNullDecimal(decimal.NewFromInt(12))
	assert.NoError(t, store.CheckRecord(reinforced))
}

func TestMemory_ResolveZone(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	zone, ok, err := m.ResolveZone(ctx, "69001", pricing.LineSelfEmployed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("Z4"), zone)

	zone, ok, err = m.ResolveZone(ctx, "67000", pricing.LineSenior)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("AM"), zone)

	// A replaced self-employed table drops departments it does not list.
	require.NoError(t, m.PutZones(ctx, pricing.LineSelfEmployed, pricing.ZoneTable{"75": "Z1"}))
	_, ok, err = m.ResolveZone(ctx, "69001", pricing.LineSelfEmployed)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, m.PutZones(ctx, "dental", pricing.ZoneTable{}))
}

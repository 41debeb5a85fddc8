package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/premium-engine/factory"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/pricing/store"
)

func findRecord(t *testing.T, b *factory.Bundle, product string, zone pricing.Zone, role pricing.Role, bracket pricing.Bracket) pricing.TariffRecord {
	t.Helper()
	for _, r := range b.Records {
		if r.ProductName == product && r.Zone == zone && r.Row.Role == role && r.Row.Bracket == bracket {
			return r
		}
	}
	t.Fatalf("no record %s/%s/%s/%s", product, zone, role, bracket)
	return pricing.TariffRecord{}
}

func assertPrice(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected a price")
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
}

func TestParse_Curve(t *testing.T) {
	// GIVEN: a senior curve growing 10% a year from age 60
	doc := `
grids:
  - product_line: senior
    zones: [Z01, Z02]
    curve:
      reference_age: 60
      base: [100, 110, 120, 130, 140, 150]
      surcharge: [10, 11, 12, 13]
      yearly_increase: 0.1
      zone_factors: {Z02: 1.5}
      role_factors: {spouse: 0.5, child: 0.25}
      tier_factors: {"15": 2}
`
	// WHEN: expanding it
	b, err := factory.Parse([]byte(doc))
	require.NoError(t, err)

	// THEN: every bracket of every role, product and zone is generated
	assert.Len(t, b.Records, 3*2*(42+42+2))

	// AND: prices follow the curve
	assertPrice(t, "100", findRecord(t, b, "SENIOR 3011", "Z01", pricing.RolePolicyholder, "60").Row.Base[0])
	assertPrice(t, "110", findRecord(t, b, "SENIOR 3011", "Z01", pricing.RolePolicyholder, "61").Row.Base[0])
	assertPrice(t, "50", findRecord(t, b, "SENIOR 3011", "Z01", pricing.RoleSpouse, "60").Row.Base[0])
	assertPrice(t, "150", findRecord(t, b, "SENIOR 3011", "Z02", pricing.RolePolicyholder, "60").Row.Base[0])
	assertPrice(t, "200", findRecord(t, b, "SENIOR 3012", "Z01", pricing.RolePolicyholder, "60").Row.Base[0])
	assertPrice(t, "10", findRecord(t, b, "SENIOR 3011", "Z01", pricing.RolePolicyholder, "60").Row.Surcharge[0])

	// AND: children ignore age
	child := findRecord(t, b, "SENIOR 3011", "Z01", pricing.RoleChild, pricing.BracketSeniorChildAdult)
	assertPrice(t, "25", child.Row.Base[0])

	// AND: the under-60 band is priced at 59
	assertPrice(t, "90.91", findRecord(t, b, "SENIOR 3011", "Z01", pricing.RolePolicyholder, pricing.BracketSeniorUnder60).Row.Base[0])
}

func TestParse_ExplicitRowsKeepNulls(t *testing.T) {
	doc := `
grids:
  - product_line: senior_plus
    products: ["SENIOR PLUS 4122"]
    zones: [AM, Z01]
    rows:
      - zone: AM
        role: spouse
        bracket: "70"
        base: [80, 95.5, ~, 128.47, 150, 170]
        surcharge: [9, 10, 11, 12]
        hospital_reinforcement: 14.999
      - role: child
        bracket: "0-27"
        base: [20, 25, 30, 35, 40, 45]
`
	b, err := factory.Parse([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, b.Records, 3, "zone-scoped row once, unscoped row per zone")

	spouse := findRecord(t, b, "SENIOR PLUS 4122", "AM", pricing.RoleSpouse, "70")
	assertPrice(t, "95.5", spouse.Row.Base[1])
	assert.False(t, spouse.Row.Base[2].Valid)
	assertPrice(t, "14.999", spouse.Row.HospitalReinforcement)

	child := findRecord(t, b, "SENIOR PLUS 4122", "Z01", pricing.RoleChild, "0-27")
	assert.False(t, child.Row.Surcharge[0].Valid, "no surcharge table")
}

func TestParse_AcceptsJSON(t *testing.T) {
	doc := `{"grids": [{"product_line": "tns_formules", "products": ["TNS FORMULES 2051"], "zones": ["Z3"],
	  "rows": [{"role": "policyholder_alone", "bracket": "0-19", "base": [1, 2, 3, 4, 5, 6]}]}]}`

	b, err := factory.Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Equal(t, pricing.RolePolicyholderAlone, b.Records[0].Row.Role)
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown line", `grids: [{product_line: dental, zones: [Z1], rows: []}]`, "unknown product line"},
		{"no zones", `grids: [{product_line: senior, rows: []}]`, "zone"},
		{"unknown zone", `grids: [{product_line: senior, zones: [Z3], curve: {base: [1,2,3,4,5,6]}}]`, "unknown zone"},
		{"foreign product", `grids: [{product_line: senior, products: ["SENIOR PLUS 4121"], zones: [Z01], curve: {base: [1,2,3,4,5,6]}}]`, "not sold"},
		{"empty grid", `grids: [{product_line: senior, zones: [Z01]}]`, "rows or a curve"},
		{"short base", `grids: [{product_line: senior, zones: [Z01], rows: [{role: spouse, bracket: "70", base: [1,2,3,4,5]}]}]`, "6 prices"},
		{"short surcharge", `grids: [{product_line: senior, zones: [Z01], rows: [{role: spouse, bracket: "70", base: [1,2,3,4,5,6], surcharge: [1,2]}]}]`, "options 3-6"},
		{"negative", `grids: [{product_line: senior, zones: [Z01], rows: [{role: spouse, bracket: "70", base: [1,2,-3,4,5,6]}]}]`, "base option 3"},
		{"reinforcement off senior plus", `grids: [{product_line: senior, zones: [Z01], rows: [{role: spouse, bracket: "70", base: [1,2,3,4,5,6], hospital_reinforcement: 5}]}]`, "hospital reinforcement"},
		{"collapsed age", `grids: [{product_line: senior, zones: [Z01], rows: [{role: spouse, bracket: "59", base: [1,2,3,4,5,6]}]}]`, "bracket"},
		{"alone on senior", `grids: [{product_line: senior, zones: [Z01], rows: [{role: policyholder_alone, bracket: "70", base: [1,2,3,4,5,6]}]}]`, "not priced"},
		{"row zone outside grid", `grids: [{product_line: senior, zones: [Z01], rows: [{zone: Z02, role: spouse, bracket: "70", base: [1,2,3,4,5,6]}]}]`, "not a zone of the grid"},
		{"department twice", `zones: [{product_line: tns_formules, departments: {Z1: ["75"], Z2: ["75"]}}]`, "listed in zones"},
		{"not yaml", `grids: [`, "parse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.Parse([]byte(tc.doc))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestSeed_ZoneTableAndCustomZone(t *testing.T) {
	// GIVEN: a file that moves Paris into a new self-employed zone
	doc := `
zones:
  - product_line: tns_formules
    departments:
      Z6: ["75"]
      Z1: ["03"]
grids:
  - product_line: tns_formules
    products: ["TNS FORMULES 2051"]
    zones: [Z6]
    rows:
      - role: policyholder
        bracket: "45"
        base: [10, 20, 30, 40, 50, 60]
`
	b, err := factory.Parse([]byte(doc))
	require.NoError(t, err)

	// WHEN: seeding a store
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, factory.Seed(ctx, m, b))

	// THEN: the table replaces the default one
	zone, ok, err := m.ResolveZone(ctx, "75011", pricing.LineSelfEmployed)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pricing.Zone("Z6"), zone)

	_, ok, err = m.ResolveZone(ctx, "69001", pricing.LineSelfEmployed)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, m.Len())
}

func TestDefault_PricesEveryLine(t *testing.T) {
	b, err := factory.Default()
	require.NoError(t, err)

	// 3 products x 3 zones x 86 senior rows, 3 products x 5 zones x 4 roles x 82 TNS brackets
	assert.Len(t, b.Records, 774+774+4920)

	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, factory.Seed(ctx, m, b))
	calc := pricing.NewCalculator(m)

	for _, line := range pricing.ProductLines {
		for _, tier := range pricing.CommissionTiers {
			req := pricing.QuoteRequest{
				ProductLine:    line,
				PostalCode:     "67000",
				EffectiveDate:  pricing.NewDate(2025, time.March, 1),
				Policyholder:   pricing.Policyholder{BirthDate: pricing.NewDate(1950, time.June, 1)},
				Spouse:         &pricing.Person{BirthDate: pricing.NewDate(1926, time.January, 1)},
				Children:       []pricing.Person{{BirthDate: pricing.NewDate(1990, time.January, 1)}},
				Option:         6,
				CommissionTier: tier,
			}
			res, err := calc.ComputeQuote(ctx, req)
			require.NoError(t, err, "%s tier %d", line, tier)
			assert.True(t, res.MonthlyPremium.IsPositive())
			assert.Len(t, res.Details, 3)
		}
	}
}

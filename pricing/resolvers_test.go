package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/premium-engine/pricing"
)

// =============================================================================
// AGE
// =============================================================================

func TestAge_BirthdayNotYetReached(t *testing.T) {
	birth := pricing.NewDate(1958, time.March, 15)

	assert.Equal(t, 66, pricing.Age(birth, pricing.NewDate(2025, time.February, 1)))
	assert.Equal(t, 66, pricing.Age(birth, pricing.NewDate(2025, time.March, 10)))
	assert.Equal(t, 67, pricing.Age(birth, pricing.NewDate(2025, time.March, 16)))
}

func TestAge_OnBirthday(t *testing.T) {
	birth := pricing.NewDate(1958, time.March, 15)
	assert.Equal(t, 67, pricing.Age(birth, pricing.NewDate(2025, time.March, 15)))
}

func TestAge_LeapDayBirth(t *testing.T) {
	birth := pricing.NewDate(2000, time.February, 29)

	assert.Equal(t, 24, pricing.Age(birth, pricing.NewDate(2025, time.February, 28)))
	assert.Equal(t, 25, pricing.Age(birth, pricing.NewDate(2025, time.March, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := pricing.ParseDate("1958-03-15")
	require.NoError(t, err)
	assert.Equal(t, pricing.NewDate(1958, time.March, 15), d)
	assert.True(t, d.Valid())
	assert.Equal(t, "1958-03-15", d.String())

	_, err = pricing.ParseDate("2025-02-30")
	assert.Error(t, err)
	_, err = pricing.ParseDate("15/03/1958")
	assert.Error(t, err)
}

func TestDateValid(t *testing.T) {
	assert.False(t, pricing.Date{}.Valid())
	assert.False(t, pricing.NewDate(2025, time.February, 30).Valid())
	assert.False(t, pricing.NewDate(2025, 13, 1).Valid())
	assert.True(t, pricing.NewDate(2024, time.February, 29).Valid())
}

// =============================================================================
// ZONES
// =============================================================================

func TestResolveZone_SeniorAlsaceMoselle(t *testing.T) {
	for _, postal := range []string{"57000", "57990", "67000", "67100", "68000", "68200"} {
		for _, line := range []pricing.ProductLine{pricing.LineSenior, pricing.LineSeniorPlus} {
			zone, ok := pricing.ResolveZone(postal, line, nil)
			assert.True(t, ok)
			assert.Equal(t, pricing.Zone("AM"), zone, "postal %s on %s", postal, line)
		}
	}
}

func TestResolveZone_SeniorFixedRule(t *testing.T) {
	cases := map[string]pricing.Zone{
		"75001": "Z02",
		"69001": "Z02",
		"13001": "Z02",
		"33000": "Z02",
		"20000": "Z02",
		"99123": "Z02",
		"29000": "Z01",
		"44000": "Z01",
		"01000": "Z01",
	}
	for postal, want := range cases {
		zone, ok := pricing.ResolveZone(postal, pricing.LineSenior, nil)
		assert.True(t, ok, postal)
		assert.Equal(t, want, zone, postal)
	}
}

func TestResolveZone_SeniorTableOverridesRule(t *testing.T) {
	table := pricing.ZoneTable{"29": "Z02"}

	zone, ok := pricing.ResolveZone("29000", pricing.LineSeniorPlus, table)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("Z02"), zone)

	// Departments missing from the table fall back to the fixed rule.
	zone, ok = pricing.ResolveZone("67000", pricing.LineSeniorPlus, table)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("AM"), zone)
}

func TestResolveZone_SelfEmployedTable(t *testing.T) {
	table := pricing.DefaultSelfEmployedZones()

	zone, ok := pricing.ResolveZone("69001", pricing.LineSelfEmployed, table)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("Z4"), zone)

	zone, ok = pricing.ResolveZone("75008", pricing.LineSelfEmployed, table)
	assert.True(t, ok)
	assert.Equal(t, pricing.Zone("Z5"), zone)

	_, ok = pricing.ResolveZone("99000", pricing.LineSelfEmployed, table)
	assert.False(t, ok, "99 has no self-employed zone")

	_, ok = pricing.ResolveZone("75008", pricing.LineSelfEmployed, nil)
	assert.False(t, ok, "no fallback rule for self-employed")
}

func TestDefaultSelfEmployedZones_CoversMetropolitanDepartments(t *testing.T) {
	table := pricing.DefaultSelfEmployedZones()
	for d := 1; d <= 95; d++ {
		dept := []byte{byte('0' + d/10), byte('0' + d%10)}
		zone, ok := table[string(dept)]
		assert.True(t, ok, "department %s has no zone", dept)
		assert.Contains(t, pricing.SelfEmployedZones, zone)
	}
}

// =============================================================================
// BRACKETS
// =============================================================================

func TestResolveBracket(t *testing.T) {
	cases := []struct {
		age  int
		role pricing.Role
		line pricing.ProductLine
		want pricing.Bracket
	}{
		{15, pricing.RolePolicyholder, pricing.LineSelfEmployed, "0-19"},
		{19, pricing.RoleChild, pricing.LineSelfEmployed, "0-19"},
		{20, pricing.RolePolicyholder, pricing.LineSelfEmployed, "20"},
		{45, pricing.RolePolicyholderAlone, pricing.LineSelfEmployed, "45"},
		{27, pricing.RoleChild, pricing.LineSenior, "0-27"},
		{28, pricing.RoleChild, pricing.LineSenior, "28+"},
		{40, pricing.RoleChild, pricing.LineSeniorPlus, "28+"},
		{59, pricing.RoleSpouse, pricing.LineSenior, "0-59"},
		{60, pricing.RolePolicyholder, pricing.LineSenior, "60"},
		{99, pricing.RolePolicyholder, pricing.LineSeniorPlus, "99"},
		{100, pricing.RolePolicyholder, pricing.LineSenior, "100+"},
		{104, pricing.RoleSpouse, pricing.LineSenior, "100+"},
	}
	for _, tc := range cases {
		got := pricing.ResolveBracket(tc.age, tc.role, tc.line)
		assert.Equal(t, tc.want, got, "age %d role %s line %s", tc.age, tc.role, tc.line)
	}
}

func TestBrackets_EnumeratesResolvableKeys(t *testing.T) {
	senior := pricing.Brackets(pricing.RolePolicyholder, pricing.LineSenior, 0)
	assert.Len(t, senior, 42) // 0-59, 60..99, 100+
	assert.Equal(t, pricing.Bracket("0-59"), senior[0])
	assert.Equal(t, pricing.Bracket("100+"), senior[len(senior)-1])

	for age := 0; age <= 110; age++ {
		b := pricing.ResolveBracket(age, pricing.RoleSpouse, pricing.LineSenior)
		assert.Contains(t, senior, b)
	}

	tns := pricing.Brackets(pricing.RoleChild, pricing.LineSelfEmployed, 30)
	assert.Equal(t, []pricing.Bracket{"0-19", "20", "21", "22", "23", "24", "25", "26", "27", "28", "29", "30"}, tns)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestProductName_TierSuffix(t *testing.T) {
	cases := []struct {
		line pricing.ProductLine
		tier pricing.CommissionTier
		want string
	}{
		{pricing.LineSeniorPlus, pricing.Tier10, "SENIOR PLUS 4121"},
		{pricing.LineSeniorPlus, pricing.Tier20, "SENIOR PLUS 4123"},
		{pricing.LineSenior, pricing.Tier15, "SENIOR 3012"},
		{pricing.LineSelfEmployed, pricing.Tier10, "TNS FORMULES 2051"},
		{pricing.LineSelfEmployed, pricing.Tier20, "TNS FORMULES 2053"},
	}
	for _, tc := range cases {
		got, err := pricing.ProductName(tc.line, tc.tier)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestProductName_UnknownTier(t *testing.T) {
	_, err := pricing.ProductName(pricing.LineSenior, pricing.CommissionTier(12))

	var notFound *pricing.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, pricing.ErrProductNotFound)
	assert.True(t, pricing.IsNotFound(err))
}

func TestCatalog_ListsEveryLineAndTier(t *testing.T) {
	products := pricing.Catalog()
	assert.Len(t, products, 9)

	names := map[string]bool{}
	for _, p := range products {
		names[p.Name] = true
		assert.True(t, pricing.IsProductOf(p.Line, p.Name))
	}
	assert.Len(t, names, 9, "product names are unique")
	assert.Equal(t, []string{"SENIOR 3011", "SENIOR 3012", "SENIOR 3013"}, pricing.ProductsFor(pricing.LineSenior))
}

func TestRolesFor_ClosedSetPerLine(t *testing.T) {
	assert.True(t, pricing.RoleAllowed(pricing.LineSelfEmployed, pricing.RolePolicyholderAlone))
	assert.False(t, pricing.RoleAllowed(pricing.LineSenior, pricing.RolePolicyholderAlone))
	assert.False(t, pricing.RoleAllowed(pricing.LineSeniorPlus, pricing.RolePolicyholderAlone))
	assert.True(t, pricing.RoleAllowed(pricing.LineSeniorPlus, pricing.RoleChild))
}

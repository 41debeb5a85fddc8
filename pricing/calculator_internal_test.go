package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceBeneficiary_OptionNotPriced(t *testing.T) {
	// GIVEN: an entry built outside the row contract, with option 4 undefined
	var entry TariffEntry
	for i := range entry.Base {
		if i != 3 {
			entry.Base[i] = decimal.NewNullDecimal(decimal.NewFromInt(int64(10 * (i + 1))))
		}
	}
	req := QuoteRequest{Option: 4, EffectiveDate: NewDate(2025, time.February, 1)}
	b := beneficiary{label: "Policyholder", role: RolePolicyholder, age: 66, bracket: "66"}

	// WHEN: pricing the beneficiary
	_, err := priceBeneficiary(req, b, entry, "SENIOR 3011", "Z02")

	// THEN: a grid error naming the row and option
	var optErr *OptionNotFoundError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, Option(4), optErr.Option)
	assert.Equal(t, TariffKey{Role: RolePolicyholder, Bracket: "66"}, optErr.Key)
	assert.True(t, IsGridError(err))
	assert.Contains(t, err.Error(), "option 4")
}

func TestBuildBeneficiaries_Order(t *testing.T) {
	req := QuoteRequest{
		ProductLine:   LineSenior,
		EffectiveDate: NewDate(2025, time.February, 1),
		Policyholder:  Policyholder{BirthDate: NewDate(1950, time.January, 1)},
		Spouse:        &Person{BirthDate: NewDate(1952, time.June, 1)},
		Children: []Person{
			{BirthDate: NewDate(1990, time.January, 1)},
			{BirthDate: NewDate(2000, time.January, 1)},
			{BirthDate: NewDate(2001, time.January, 1)},
		},
	}

	people := buildBeneficiaries(req)
	require.Len(t, people, 5)
	assert.Equal(t, "Policyholder", people[0].label)
	assert.Equal(t, Bracket("75"), people[0].bracket)
	assert.Equal(t, "Spouse", people[1].label)
	assert.Equal(t, Bracket("72"), people[1].bracket)
	assert.Equal(t, "Child 1", people[2].label)
	assert.Equal(t, Bracket("28+"), people[2].bracket)
	assert.Equal(t, "Child 2", people[3].label)
	assert.Equal(t, Bracket("0-27"), people[3].bracket)
	assert.Equal(t, "Child 3", people[4].label)
	assert.Equal(t, people[3].key(), people[4].key(), "same band, same key")
}

func TestTariffRowEntry_NullContract(t *testing.T) {
	row := TariffRow{Role: RoleChild, Bracket: "0-27"}
	row.Base[0] = decimal.NewNullDecimal(decimal.NewFromInt(12))

	e := row.Entry()
	for o := Option(1); o <= OptionCount; o++ {
		_, ok := e.Base.For(o)
		assert.True(t, ok, "option %d defined after the null contract", o)
	}
	assert.Nil(t, e.Surcharge, "no surcharge column set, no surcharge table")
	assert.False(t, e.HospitalReinforcement.Valid)

	back := RowFromEntry(row.Key(), e)
	assert.Equal(t, row.Key(), back.Key())
	assert.True(t, back.Base[0].Decimal.Equal(decimal.NewFromInt(12)))
}

/*
Package pricing provides the premium rating engine.

PURPOSE:
  Maps a quote request (product line, postal code, effective date, family
  composition, coverage option) to a monthly premium. The engine resolves a
  tariff zone and a product name once, derives an age bracket per
  beneficiary, fetches the matching tariff rows in one batch and composes
  base, surcharge and hospital reinforcement prices.

KEY CONCEPTS IN THIS FILE (types.go):
  - ProductLine: Senior Plus, Senior, TNS Formules (self-employed)
  - CommissionTier: 10/15/20 percent, selects the product variant
  - Option: coverage column 1..6 of a tariff row
  - Role: beneficiary qualifier used as part of the tariff key
  - TariffEntry: prices of one tariff row, indexed by option
  - QuoteRequest / QuoteResult / BeneficiaryDetail

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, rounded to cents per field
  2. Closed sets: product lines, tiers, options and roles are enums, never
     free-form strings looked up at read time
  3. Purity: nothing in this package performs I/O except through the
     TariffRepository interface (store.go)

USAGE:
  calc := pricing.NewCalculator(store.NewMemory())
  res, err := calc.ComputeQuote(ctx, pricing.QuoteRequest{...})

SEE ALSO:
  - calculator.go: ComputeQuote orchestration
  - validate.go: Cross-field business rules
  - store.go: Tariff repository contract
*/
package pricing

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT LINE
// =============================================================================

type ProductLine string

const (
	LineSeniorPlus   ProductLine = "senior_plus"
	LineSenior       ProductLine = "senior"
	LineSelfEmployed ProductLine = "tns_formules"
)

// ProductLines lists every supported line in display order.
var ProductLines = []ProductLine{LineSeniorPlus, LineSenior, LineSelfEmployed}

func (l ProductLine) Valid() bool {
	switch l {
	case LineSeniorPlus, LineSenior, LineSelfEmployed:
		return true
	}
	return false
}

// IsSenior reports whether the line uses the senior zoning and banding rules.
func (l ProductLine) IsSenior() bool {
	return l == LineSeniorPlus || l == LineSenior
}

func ParseProductLine(s string) (ProductLine, error) {
	l := ProductLine(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown product line %q", s)
	}
	return l, nil
}

// =============================================================================
// COMMISSION TIER
// =============================================================================

// CommissionTier is the broker commission rate in percent.
type CommissionTier int

const (
	Tier10 CommissionTier = 10
	Tier15 CommissionTier = 15
	Tier20 CommissionTier = 20
)

var CommissionTiers = []CommissionTier{Tier10, Tier15, Tier20}

func (t CommissionTier) Valid() bool {
	return t == Tier10 || t == Tier15 || t == Tier20
}

func ParseCommissionTier(s string) (CommissionTier, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !CommissionTier(n).Valid() {
		return 0, fmt.Errorf("unknown commission tier %q", s)
	}
	return CommissionTier(n), nil
}

// =============================================================================
// OPTION - Coverage column of a tariff row
// =============================================================================

type Option int

const (
	OptionCount = 6

	// FirstSurchargeOption is the lowest option that can carry a supplementary tier.
	FirstSurchargeOption Option = 3
)

func (o Option) Valid() bool { return o >= 1 && o <= OptionCount }

// AllowsSurcharge reports whether the option belongs to the surcharge range 3..6.
func (o Option) AllowsSurcharge() bool { return o >= FirstSurchargeOption && o <= OptionCount }

// =============================================================================
// ROLE - Beneficiary qualifier (part of the tariff key)
// =============================================================================

type Role string

const (
	RolePolicyholder      Role = "policyholder"
	RolePolicyholderAlone Role = "policyholder_alone"
	RoleSpouse            Role = "spouse"
	RoleChild             Role = "child"
)

// Label is the display name of the role. Children are numbered by the calculator.
func (r Role) Label() string {
	switch r {
	case RolePolicyholder:
		return "Policyholder"
	case RolePolicyholderAlone:
		return "Policyholder alone"
	case RoleSpouse:
		return "Spouse"
	case RoleChild:
		return "Child"
	}
	return string(r)
}

// IsChild reports whether the role is priced on the child bands.
func (r Role) IsChild() bool { return r == RoleChild }

// RolesFor returns the closed set of qualifiers a product line's tariff uses.
// Only the self-employed line distinguishes a policyholder covered alone.
func RolesFor(line ProductLine) []Role {
	if line == LineSelfEmployed {
		return []Role{RolePolicyholder, RolePolicyholderAlone, RoleSpouse, RoleChild}
	}
	return []Role{RolePolicyholder, RoleSpouse, RoleChild}
}

// RoleAllowed reports whether role belongs to RolesFor(line).
func RoleAllowed(line ProductLine, role Role) bool {
	for _, r := range RolesFor(line) {
		if r == role {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RolePolicyholder, RolePolicyholderAlone, RoleSpouse, RoleChild:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// =============================================================================
// ZONE / BRACKET
// =============================================================================

// Zone is a geographic pricing tier code.
type Zone string

// Bracket is the age key of a tariff row ("0-19", "64", "100+", ...).
type Bracket string

// =============================================================================
// TARIFF ENTRY - Prices of one tariff row
// =============================================================================

// OptionPrices holds one price per option. An invalid element means the grid
// defines no price for that option.
type OptionPrices [OptionCount]decimal.NullDecimal

// For returns the price of option o.
func (p OptionPrices) For(o Option) (decimal.Decimal, bool) {
	if !o.Valid() || !p[o-1].Valid {
		return decimal.Zero, false
	}
	return p[o-1].Decimal, true
}

// SurchargeOptionCount is the number of options (3..6) that carry a surcharge.
const SurchargeOptionCount = OptionCount - int(FirstSurchargeOption) + 1

// SurchargePrices holds the supplementary add-on for options 3..6.
type SurchargePrices [SurchargeOptionCount]decimal.Decimal

func (s SurchargePrices) For(o Option) (decimal.Decimal, bool) {
	if !o.AllowsSurcharge() {
		return decimal.Zero, false
	}
	return s[o-FirstSurchargeOption], true
}

// TariffEntry is a resolved tariff row. Surcharge is nil when the plan offers
// no supplementary tier. HospitalReinforcement is only ever valid on Senior
// Plus grids; stores and the grid factory reject it on other lines.
type TariffEntry struct {
	Base                  OptionPrices
	Surcharge             *SurchargePrices
	HospitalReinforcement decimal.NullDecimal
}

// TariffKey identifies a tariff row within one (product, zone) grid.
type TariffKey struct {
	Role    Role
	Bracket Bracket
}

func (k TariffKey) String() string { return fmt.Sprintf("%s/%s", k.Role, k.Bracket) }

// =============================================================================
// QUOTE REQUEST
// =============================================================================

type Person struct {
	BirthDate Date
}

type Policyholder struct {
	BirthDate Date
	// IsAlone is only meaningful for the self-employed line, and only without
	// spouse or children.
	IsAlone bool
}

type QuoteRequest struct {
	ProductLine           ProductLine
	PostalCode            string
	EffectiveDate         Date
	Policyholder          Policyholder
	Spouse                *Person
	Children              []Person
	Option                Option
	SupplementaryCover    bool
	HospitalReinforcement bool
	CommissionTier        CommissionTier
}

// HasDependents reports whether a spouse or any child is covered.
func (r QuoteRequest) HasDependents() bool {
	return r.Spouse != nil || len(r.Children) > 0
}

// =============================================================================
// QUOTE RESULT
// =============================================================================

type BeneficiaryDetail struct {
	Label              string
	Role               Role
	Age                int
	Bracket            Bracket
	BasePrice          decimal.Decimal
	SurchargePrice     decimal.Decimal
	ReinforcementPrice decimal.Decimal
	Total              decimal.Decimal
}

type QuoteResult struct {
	MonthlyPremium decimal.Decimal
	ProductName    string
	Zone           Zone
	Details        []BeneficiaryDetail
}

// MoneyPlaces is the rounding precision of every monetary field.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

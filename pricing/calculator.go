package pricing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATOR - ComputeQuote orchestration
// =============================================================================

// Calculator computes premiums against a tariff repository. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	repo TariffRepository
}

func NewCalculator(repo TariffRepository) *Calculator {
	return &Calculator{repo: repo}
}

// beneficiary is one covered person before pricing.
type beneficiary struct {
	label   string
	role    Role
	age     int
	bracket Bracket
}

func (b beneficiary) key() TariffKey { return TariffKey{Role: b.role, Bracket: b.bracket} }

// ComputeQuote validates req, resolves product and zone, fetches every needed
// tariff row in one call and returns the priced quote. Any failure aborts the
// whole computation; no partial result is ever returned.
func (c *Calculator) ComputeQuote(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	// 1) validate
	if errs := Validate(req); len(errs) > 0 {
		return QuoteResult{}, &InvalidInputError{Errors: errs}
	}

	// 2) product and zone, once per quote
	productName, err := ProductName(req.ProductLine, req.CommissionTier)
	if err != nil {
		return QuoteResult{}, err
	}
	zone, ok, err := c.repo.ResolveZone(ctx, req.PostalCode, req.ProductLine)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("resolve zone: %w", err)
	}
	if !ok {
		return QuoteResult{}, &ZoneNotFoundError{
			PostalCode:  req.PostalCode,
			Department:  Department(req.PostalCode),
			ProductLine: req.ProductLine,
		}
	}

	// 3-4) beneficiaries with age and bracket
	people := buildBeneficiaries(req)

	// 5) one batch fetch over the distinct keys
	entries, err := c.fetchEntries(ctx, req.ProductLine, productName, zone, people)
	if err != nil {
		return QuoteResult{}, err
	}

	// 6-7) price each beneficiary, then sum the rounded totals
	result := QuoteResult{
		ProductName:    productName,
		Zone:           zone,
		MonthlyPremium: decimal.Zero,
		Details:        make([]BeneficiaryDetail, 0, len(people)),
	}
	for _, b := range people {
		detail, err := priceBeneficiary(req, b, entries[b.key()], productName, zone)
		if err != nil {
			return QuoteResult{}, err
		}
		result.Details = append(result.Details, detail)
		result.MonthlyPremium = result.MonthlyPremium.Add(detail.Total)
	}
	result.MonthlyPremium = RoundMoney(result.MonthlyPremium)

	return result, nil
}

// buildBeneficiaries lists the covered people in fixed order: policyholder,
// spouse, then children in input order.
func buildBeneficiaries(req QuoteRequest) []beneficiary {
	people := make([]beneficiary, 0, 2+len(req.Children))

	holder := RolePolicyholder
	if req.ProductLine == LineSelfEmployed && req.Policyholder.IsAlone && !req.HasDependents() {
		holder = RolePolicyholderAlone
	}
	people = append(people, newBeneficiary(req, holder.Label(), holder, req.Policyholder.BirthDate))

	if req.Spouse != nil {
		people = append(people, newBeneficiary(req, RoleSpouse.Label(), RoleSpouse, req.Spouse.BirthDate))
	}
	for i, child := range req.Children {
		label := RoleChild.Label() + " " + strconv.Itoa(i+1)
		people = append(people, newBeneficiary(req, label, RoleChild, child.BirthDate))
	}
	return people
}

func newBeneficiary(req QuoteRequest, label string, role Role, birth Date) beneficiary {
	age := Age(birth, req.EffectiveDate)
	return beneficiary{
		label:   label,
		role:    role,
		age:     age,
		bracket: ResolveBracket(age, role, req.ProductLine),
	}
}

// fetchEntries issues the single batch lookup. Beneficiaries sharing a key
// (two children in the same band) share the fetched row.
func (c *Calculator) fetchEntries(ctx context.Context, line ProductLine, productName string, zone Zone, people []beneficiary) (map[TariffKey]TariffEntry, error) {
	seen := make(map[TariffKey]bool, len(people))
	keys := make([]TariffKey, 0, len(people))
	for _, b := range people {
		if k := b.key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	rows, err := c.repo.FetchTariffEntries(ctx, TariffQuery{
		ProductLine: line,
		ProductName: productName,
		Zone:        zone,
		Keys:        keys,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tariff entries: %w", err)
	}

	entries := make(map[TariffKey]TariffEntry, len(rows))
	for _, r := range rows {
		if seen[r.Key()] {
			entries[r.Key()] = r.Entry()
		}
	}

	var missing []TariffKey
	for _, k := range keys {
		if _, ok := entries[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &TariffRowNotFoundError{
			ProductLine: line,
			ProductName: productName,
			Zone:        zone,
			Role:        missing[0].Role,
			Bracket:     missing[0].Bracket,
			Missing:     missing,
		}
	}
	return entries, nil
}

// priceBeneficiary composes base, surcharge and reinforcement for one person.
// Each component is rounded to cents before the total is formed.
func priceBeneficiary(req QuoteRequest, b beneficiary, entry TariffEntry, productName string, zone Zone) (BeneficiaryDetail, error) {
	base, ok := entry.Base.For(req.Option)
	if !ok {
		return BeneficiaryDetail{}, &OptionNotFoundError{
			ProductName: productName,
			Zone:        zone,
			Key:         b.key(),
			Option:      req.Option,
		}
	}

	surcharge := decimal.Zero
	if req.SupplementaryCover && req.Option.AllowsSurcharge() && entry.Surcharge != nil {
		surcharge, _ = entry.Surcharge.For(req.Option)
	}

	reinforcement := decimal.Zero
	if req.HospitalReinforcement && entry.HospitalReinforcement.Valid {
		reinforcement = entry.HospitalReinforcement.Decimal
	}

	base = RoundMoney(base)
	surcharge = RoundMoney(surcharge)
	reinforcement = RoundMoney(reinforcement)

	return BeneficiaryDetail{
		Label:              b.label,
		Role:               b.role,
		Age:                b.age,
		Bracket:            b.bracket,
		BasePrice:          base,
		SurchargePrice:     surcharge,
		ReinforcementPrice: reinforcement,
		Total:              RoundMoney(base.Add(surcharge).Add(reinforcement)),
	}, nil
}

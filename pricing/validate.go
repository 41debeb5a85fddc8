package pricing

import "fmt"

// Field names reported by Validate. They match the API's JSON field paths so
// a form can highlight the offending inputs directly.
const (
	FieldProductLine           = "product_line"
	FieldPostalCode            = "postal_code"
	FieldEffectiveDate         = "effective_date"
	FieldPolicyholderBirthDate = "policyholder.birth_date"
	FieldPolicyholderAlone     = "policyholder.is_alone"
	FieldSpouseBirthDate       = "spouse.birth_date"
	FieldOption                = "option"
	FieldSupplementaryCover    = "supplementary_cover"
	FieldHospitalReinforcement = "hospital_reinforcement"
	FieldCommissionTier        = "commission_tier"
)

// ChildBirthDateField is the field name of the i-th (zero-based) child's birth date.
func ChildBirthDateField(i int) string {
	return fmt.Sprintf("children[%d].birth_date", i)
}

// Validate checks every business rule of req and returns all violations.
// It never stops at the first failure; an empty result means req is valid.
func Validate(req QuoteRequest) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !req.ProductLine.Valid() {
		add(FieldProductLine, "unknown product line %q", req.ProductLine)
	}
	if !ValidPostalCode(req.PostalCode) {
		add(FieldPostalCode, "postal code must be exactly 5 digits")
	}
	if !req.Option.Valid() {
		add(FieldOption, "coverage option must be between 1 and %d", OptionCount)
	}
	if !req.CommissionTier.Valid() {
		add(FieldCommissionTier, "commission tier must be 10, 15 or 20")
	}

	if req.SupplementaryCover && req.Option < FirstSurchargeOption {
		add(FieldSupplementaryCover, "supplementary cover (surcharge) requires option %d or higher", FirstSurchargeOption)
	}
	if req.HospitalReinforcement && req.ProductLine != LineSeniorPlus {
		add(FieldHospitalReinforcement, "hospital reinforcement is only available on %s", LineSeniorPlus)
	}
	if req.Policyholder.IsAlone && req.HasDependents() {
		add(FieldPolicyholderAlone, "policyholder alone cannot have a spouse or children")
	}

	if !req.EffectiveDate.Valid() {
		add(FieldEffectiveDate, "effective date is missing or invalid")
	}
	if !req.Policyholder.BirthDate.Valid() {
		add(FieldPolicyholderBirthDate, "policyholder birth date is missing or invalid")
	}
	if req.Spouse != nil && !req.Spouse.BirthDate.Valid() {
		add(FieldSpouseBirthDate, "spouse birth date is missing or invalid")
	}
	for i, c := range req.Children {
		if !c.BirthDate.Valid() {
			add(ChildBirthDateField(i), "birth date of child %d is missing or invalid", i+1)
		}
	}

	// Only the policyholder is checked against the effective date.
	if req.EffectiveDate.Valid() && req.Policyholder.BirthDate.Valid() &&
		req.EffectiveDate.Before(req.Policyholder.BirthDate) {
		add(FieldEffectiveDate, "effective date %s precedes policyholder birth date %s",
			req.EffectiveDate, req.Policyholder.BirthDate)
	}

	return errs
}

// ValidPostalCode reports whether s is a five-digit French postal code.
func ValidPostalCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

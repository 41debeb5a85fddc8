/*
errors.go - Error types of the rating engine

PURPOSE:
  Every way ComputeQuote can fail, in one place. Callers match with
  errors.Is on the sentinels or errors.As on the structured types.

ERROR CATEGORIES:
  1. Input errors   - the request breaks a business rule (InvalidInputError)
  2. Lookup errors  - zone, product or tariff row absent (*NotFoundError)
  3. Grid errors    - a found row has no price for the option (OptionNotFoundError)

Repository failures (I/O) are wrapped and returned unchanged; they match none
of the sentinels below.

SEE ALSO:
  - validate.go: Produces ValidationErrors
  - calculator.go: Raises the lookup and grid errors
*/
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidInput = errors.New("invalid quote request")

	ErrZoneNotFound = errors.New("zone not found")

	ErrProductNotFound = errors.New("product not found")

	ErrTariffRowNotFound = errors.New("tariff row not found")

	// ErrOptionNotFound means the tariff grid is malformed, not that the user erred.
	ErrOptionNotFound = errors.New("option not priced")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationErrors is the full list of rule violations of a request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the offending field names in rule order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Field
	}
	return out
}

// InvalidInputError aggregates every validation failure of one request.
type InvalidInputError struct {
	Errors ValidationErrors
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Errors.Error())
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

type ZoneNotFoundError struct {
	PostalCode  string
	Department  string
	ProductLine ProductLine
}

func (e *ZoneNotFoundError) Error() string {
	return fmt.Sprintf("no zone for postal code %s (department %s) on %s",
		e.PostalCode, e.Department, e.ProductLine)
}

func (e *ZoneNotFoundError) Unwrap() error { return ErrZoneNotFound }

type ProductNotFoundError struct {
	Line ProductLine
	Tier CommissionTier
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("no product for line %s at commission %d%%", e.Line, int(e.Tier))
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// TariffRowNotFoundError names the first (role, bracket) pair the tariff
// source could not provide, plus every other missing key of the same batch.
type TariffRowNotFoundError struct {
	ProductLine ProductLine
	ProductName string
	Zone        Zone
	Role        Role
	Bracket     Bracket
	Missing     []TariffKey
}

func (e *TariffRowNotFoundError) Error() string {
	msg := fmt.Sprintf("no tariff row for product %q zone %s role %s bracket %s",
		e.ProductName, e.Zone, e.Role, e.Bracket)
	if len(e.Missing) > 1 {
		keys := make([]string, len(e.Missing))
		for i, k := range e.Missing {
			keys[i] = k.String()
		}
		msg += fmt.Sprintf(" (missing: %s)", strings.Join(keys, ", "))
	}
	return msg
}

func (e *TariffRowNotFoundError) Unwrap() error { return ErrTariffRowNotFound }

type OptionNotFoundError struct {
	ProductName string
	Zone        Zone
	Key         TariffKey
	Option      Option
}

func (e *OptionNotFoundError) Error() string {
	return fmt.Sprintf("tariff row %s of %q zone %s defines no price for option %d",
		e.Key, e.ProductName, e.Zone, int(e.Option))
}

func (e *OptionNotFoundError) Unwrap() error { return ErrOptionNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to an invalid request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if a lookup found nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrTariffRowNotFound)
}

// IsGridError returns true if the tariff data itself is malformed.
func IsGridError(err error) bool {
	return errors.Is(err, ErrOptionNotFound)
}

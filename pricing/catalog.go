package pricing

import "fmt"

// =============================================================================
// PRODUCT CATALOG - (line, commission tier) -> product name
// =============================================================================

// Product is one commercial variant of a product line.
type Product struct {
	Line ProductLine
	Tier CommissionTier
	Code string
	Name string
}

// productCodes is the explicit tier table. Each line has a fixed three-digit
// code followed by the tier digit (10% -> 1, 15% -> 2, 20% -> 3).
var productCodes = map[ProductLine]map[CommissionTier]Product{
	LineSeniorPlus: {
		Tier10: {Line: LineSeniorPlus, Tier: Tier10, Code: "4121", Name: "SENIOR PLUS 4121"},
		Tier15: {Line: LineSeniorPlus, Tier: Tier15, Code: "4122", Name: "SENIOR PLUS 4122"},
		Tier20: {Line: LineSeniorPlus, Tier: Tier20, Code: "4123", Name: "SENIOR PLUS 4123"},
	},
	LineSenior: {
		Tier10: {Line: LineSenior, Tier: Tier10, Code: "3011", Name: "SENIOR 3011"},
		Tier15: {Line: LineSenior, Tier: Tier15, Code: "3012", Name: "SENIOR 3012"},
		Tier20: {Line: LineSenior, Tier: Tier20, Code: "3013", Name: "SENIOR 3013"},
	},
	LineSelfEmployed: {
		Tier10: {Line: LineSelfEmployed, Tier: Tier10, Code: "2051", Name: "TNS FORMULES 2051"},
		Tier15: {Line: LineSelfEmployed, Tier: Tier15, Code: "2052", Name: "TNS FORMULES 2052"},
		Tier20: {Line: LineSelfEmployed, Tier: Tier20, Code: "2053", Name: "TNS FORMULES 2053"},
	},
}

// LookupProduct returns the product sold on line at tier.
func LookupProduct(line ProductLine, tier CommissionTier) (Product, error) {
	p, ok := productCodes[line][tier]
	if !ok {
		return Product{}, &ProductNotFoundError{Line: line, Tier: tier}
	}
	return p, nil
}

// LookupProductByName finds a catalog product by its canonical name.
func LookupProductByName(name string) (Product, bool) {
	for _, tiers := range productCodes {
		for _, p := range tiers {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Product{}, false
}

// ProductName returns the canonical product name used as tariff lookup key.
func ProductName(line ProductLine, tier CommissionTier) (string, error) {
	p, err := LookupProduct(line, tier)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// Catalog lists every product, by line then tier.
func Catalog() []Product {
	var out []Product
	for _, line := range ProductLines {
		for _, tier := range CommissionTiers {
			out = append(out, productCodes[line][tier])
		}
	}
	return out
}

// ProductsFor lists the product names of one line.
func ProductsFor(line ProductLine) []string {
	var out []string
	for _, tier := range CommissionTiers {
		if p, ok := productCodes[line][tier]; ok {
			out = append(out, p.Name)
		}
	}
	return out
}

// IsProductOf reports whether name is a catalog product of line.
func IsProductOf(line ProductLine, name string) bool {
	for _, p := range productCodes[line] {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (p Product) String() string { return fmt.Sprintf("%s (%d%%)", p.Name, int(p.Tier)) }

/*
Package factory provides YAML/JSON to Go tariff grid conversion.

PURPOSE:
  Converts grid files into pricing.TariffRecords and department zone tables,
  so actuaries can publish a new tariff without code changes. A file is
  loaded into any pricing.TariffWriter (memory or SQLite store).

WHY YAML?
  - Grids are long and mostly numeric, YAML keeps them reviewable
  - JSON is valid YAML, so the API import endpoint accepts both
  - Version control for tariff revisions

FILE SCHEMA:
  zones:                       # optional department table overrides
    - product_line: tns_formules
      departments:
        Z1: ["03", "08"]
  grids:
    - product_line: senior
      products: ["SENIOR 3011"] # default: every catalog product of the line
      zones: [Z01, Z02, AM]
      rows:                     # explicit rows
        - zone: Z02             # default: every zone of the grid
          role: policyholder
          bracket: "66"
          base: [80, 95.5, 110.2, 128.47, 150, ~]
          surcharge: [9, 10, 11, 12]
      curve:                    # or rows generated from a curve
        reference_age: 60
        base: [50, 60, 70, 80, 95, 110]
        surcharge: [6, 7, 8, 9]
        yearly_increase: 0.025
        zone_factors: {Z02: 1.12, AM: 0.92}
        role_factors: {child: 0.45}
        tier_factors: {"15": 1.06, "20": 1.12}

KEY FEATURES:
  - A null (~) price stays NULL in the row (priced 0 by the engine)
  - Curves cover every bracket of every role of the line
  - Rejects reinforcement outside Senior Plus, negative prices,
    unknown lines/roles/zones/products, non-catalog brackets

USAGE:
  bundle, err := factory.LoadFile("grids/2025.yaml")
  err = factory.Seed(ctx, store, bundle)

SEE ALSO:
  - pricing/store.go: TariffRecord and TariffWriter
  - grids/default.yaml: Embedded demo grid
*/
package factory

import (
	"context"
	"embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/premium-engine/pricing"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// GridFile is the document representation of one or more tariff grids.
type GridFile struct {
	Zones []ZoneTableSpec `yaml:"zones,omitempty" json:"zones,omitempty"`
	Grids []GridSpec      `yaml:"grids" json:"grids"`
}

// ZoneTableSpec lists departments per zone for one product line.
type ZoneTableSpec struct {
	ProductLine string              `yaml:"product_line" json:"product_line"`
	Departments map[string][]string `yaml:"departments" json:"departments"`
}

type GridSpec struct {
	ProductLine string     `yaml:"product_line" json:"product_line"`
	Products    []string   `yaml:"products,omitempty" json:"products,omitempty"`
	Zones       []string   `yaml:"zones" json:"zones"`
	Rows        []RowSpec  `yaml:"rows,omitempty" json:"rows,omitempty"`
	Curve       *CurveSpec `yaml:"curve,omitempty" json:"curve,omitempty"`
}

type RowSpec struct {
	Zone                  string     `yaml:"zone,omitempty" json:"zone,omitempty"`
	Role                  string     `yaml:"role" json:"role"`
	Bracket               string     `yaml:"bracket" json:"bracket"`
	Base                  []*float64 `yaml:"base" json:"base"`
	Surcharge             []*float64 `yaml:"surcharge,omitempty" json:"surcharge,omitempty"`
	HospitalReinforcement *float64   `yaml:"hospital_reinforcement,omitempty" json:"hospital_reinforcement,omitempty"`
}

// CurveSpec generates a full grid from reference prices. The price of an
// adult row is base * zone * role * tier * (1 + yearly_increase)^(age - reference_age);
// child rows ignore the age term.
type CurveSpec struct {
	ReferenceAge          int                `yaml:"reference_age" json:"reference_age"`
	MaxAge                int                `yaml:"max_age,omitempty" json:"max_age,omitempty"`
	Base                  []float64          `yaml:"base" json:"base"`
	Surcharge             []float64          `yaml:"surcharge,omitempty" json:"surcharge,omitempty"`
	YearlyIncrease        float64            `yaml:"yearly_increase" json:"yearly_increase"`
	ZoneFactors           map[string]float64 `yaml:"zone_factors,omitempty" json:"zone_factors,omitempty"`
	RoleFactors           map[string]float64 `yaml:"role_factors,omitempty" json:"role_factors,omitempty"`
	TierFactors           map[string]float64 `yaml:"tier_factors,omitempty" json:"tier_factors,omitempty"`
	HospitalReinforcement *float64           `yaml:"hospital_reinforcement,omitempty" json:"hospital_reinforcement,omitempty"`
}

// defaultMaxAge bounds the single-year range of self-employed curves.
const defaultMaxAge = 100

// =============================================================================
// BUNDLE - Expanded grid ready to be written to a store
// =============================================================================

type Bundle struct {
	Records []pricing.TariffRecord
	Zones   map[pricing.ProductLine]pricing.ZoneTable
}

//go:embed grids/default.yaml
var gridFS embed.FS

// Default returns the embedded demo grid covering every product line.
func Default() (*Bundle, error) {
	data, err := gridFS.ReadFile("grids/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded grid: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and expands a grid file.
func LoadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) grid document and expands it.
func Parse(data []byte) (*Bundle, error) {
	var gf GridFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("failed to parse grid file: %w", err)
	}
	return Expand(gf)
}

// Seed writes the bundle's zone tables, then its rows.
func Seed(ctx context.Context, w pricing.TariffWriter, b *Bundle) error {
	lines := make([]string, 0, len(b.Zones))
	for line := range b.Zones {
		lines = append(lines, string(line))
	}
	sort.Strings(lines)
	for _, line := range lines {
		if err := w.PutZones(ctx, pricing.ProductLine(line), b.Zones[pricing.ProductLine(line)]); err != nil {
			return fmt.Errorf("seed zones %s: %w", line, err)
		}
	}
	if err := w.PutTariffs(ctx, b.Records); err != nil {
		return fmt.Errorf("seed tariffs: %w", err)
	}
	return nil
}

// =============================================================================
// EXPANSION
// =============================================================================

// Expand validates gf and converts it to records.
func Expand(gf GridFile) (*Bundle, error) {
	b := &Bundle{Zones: make(map[pricing.ProductLine]pricing.ZoneTable)}

	for i, zs := range gf.Zones {
		line, table, err := parseZoneTable(zs)
		if err != nil {
			return nil, fmt.Errorf("zones[%d]: %w", i, err)
		}
		b.Zones[line] = table
	}

	for i, g := range gf.Grids {
		recs, err := expandGrid(g, b.Zones)
		if err != nil {
			return nil, fmt.Errorf("grids[%d] (%s): %w", i, g.ProductLine, err)
		}
		b.Records = append(b.Records, recs...)
	}
	return b, nil
}

func parseZoneTable(zs ZoneTableSpec) (pricing.ProductLine, pricing.ZoneTable, error) {
	line, err := pricing.ParseProductLine(zs.ProductLine)
	if err != nil {
		return "", nil, err
	}
	table := make(pricing.ZoneTable)
	for zone, depts := range zs.Departments {
		for _, d := range depts {
			if len(d) != 2 {
				return "", nil, fmt.Errorf("department %q must have two characters", d)
			}
			if prev, dup := table[d]; dup && prev != pricing.Zone(zone) {
				return "", nil, fmt.Errorf("department %s listed in zones %s and %s", d, prev, zone)
			}
			table[d] = pricing.Zone(zone)
		}
	}
	return line, table, nil
}

func expandGrid(g GridSpec, zoneTables map[pricing.ProductLine]pricing.ZoneTable) ([]pricing.TariffRecord, error) {
	line, err := pricing.ParseProductLine(g.ProductLine)
	if err != nil {
		return nil, err
	}

	products := g.Products
	if len(products) == 0 {
		products = pricing.ProductsFor(line)
	}
	for _, p := range products {
		if !pricing.IsProductOf(line, p) {
			return nil, fmt.Errorf("product %q is not sold on %s", p, line)
		}
	}

	if len(g.Zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}
	known := knownZones(line, zoneTables[line])
	zones := make([]pricing.Zone, len(g.Zones))
	for i, z := range g.Zones {
		if !known[pricing.Zone(z)] {
			return nil, fmt.Errorf("unknown zone %q", z)
		}
		zones[i] = pricing.Zone(z)
	}

	if len(g.Rows) == 0 && g.Curve == nil {
		return nil, fmt.Errorf("grid needs rows or a curve")
	}

	var out []pricing.TariffRecord
	if g.Curve != nil {
		recs, err := expandCurve(line, products, zones, *g.Curve)
		if err != nil {
			return nil, fmt.Errorf("curve: %w", err)
		}
		out = append(out, recs...)
	}
	for i, rs := range g.Rows {
		recs, err := expandRow(line, products, zones, rs)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: %w", i, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func knownZones(line pricing.ProductLine, table pricing.ZoneTable) map[pricing.Zone]bool {
	known := make(map[pricing.Zone]bool)
	if line.IsSenior() {
		for _, z := range []pricing.Zone{pricing.ZoneSenior1, pricing.ZoneSenior2, pricing.ZoneAlsaceMoselle} {
			known[z] = true
		}
	} else {
		for _, z := range pricing.SelfEmployedZones {
			known[z] = true
		}
	}
	for _, z := range table {
		known[z] = true
	}
	return known
}

func expandRow(line pricing.ProductLine, products []string, zones []pricing.Zone, rs RowSpec) ([]pricing.TariffRecord, error) {
	role, err := pricing.ParseRole(rs.Role)
	if err != nil {
		return nil, err
	}
	if !pricing.RoleAllowed(line, role) {
		return nil, fmt.Errorf("role %s is not priced on %s", role, line)
	}
	bracket := pricing.Bracket(rs.Bracket)
	if !validBracket(line, role, bracket) {
		return nil, fmt.Errorf("bracket %q is not a %s bracket for %s", rs.Bracket, line, role)
	}

	if len(rs.Base) != pricing.OptionCount {
		return nil, fmt.Errorf("base needs %d prices, got %d", pricing.OptionCount, len(rs.Base))
	}
	if len(rs.Surcharge) != 0 && len(rs.Surcharge) != pricing.SurchargeOptionCount {
		return nil, fmt.Errorf("surcharge needs %d prices (options 3-6), got %d", pricing.SurchargeOptionCount, len(rs.Surcharge))
	}
	if rs.HospitalReinforcement != nil && line != pricing.LineSeniorPlus {
		return nil, fmt.Errorf("hospital reinforcement only exists on %s", pricing.LineSeniorPlus)
	}

	row := pricing.TariffRow{Role: role, Bracket: bracket}
	for i, p := range rs.Base {
		if row.Base[i], err = nullPrice(p); err != nil {
			return nil, fmt.Errorf("base option %d: %w", i+1, err)
		}
	}
	for i, p := range rs.Surcharge {
		if row.Surcharge[i], err = nullPrice(p); err != nil {
			return nil, fmt.Errorf("surcharge option %d: %w", i+int(pricing.FirstSurchargeOption), err)
		}
	}
	if row.HospitalReinforcement, err = nullPrice(rs.HospitalReinforcement); err != nil {
		return nil, fmt.Errorf("hospital reinforcement: %w", err)
	}

	rowZones := zones
	if rs.Zone != "" {
		if !containsZone(zones, pricing.Zone(rs.Zone)) {
			return nil, fmt.Errorf("row zone %q is not a zone of the grid", rs.Zone)
		}
		rowZones = []pricing.Zone{pricing.Zone(rs.Zone)}
	}

	var out []pricing.TariffRecord
	for _, p := range products {
		for _, z := range rowZones {
			out = append(out, pricing.TariffRecord{ProductLine: line, ProductName: p, Zone: z, Row: row})
		}
	}
	return out, nil
}

func expandCurve(line pricing.ProductLine, products []string, zones []pricing.Zone, c CurveSpec) ([]pricing.TariffRecord, error) {
	if len(c.Base) != pricing.OptionCount {
		return nil, fmt.Errorf("base needs %d prices, got %d", pricing.OptionCount, len(c.Base))
	}
	if len(c.Surcharge) != 0 && len(c.Surcharge) != pricing.SurchargeOptionCount {
		return nil, fmt.Errorf("surcharge needs %d prices (options 3-6), got %d", pricing.SurchargeOptionCount, len(c.Surcharge))
	}
	if c.HospitalReinforcement != nil && line != pricing.LineSeniorPlus {
		return nil, fmt.Errorf("hospital reinforcement only exists on %s", pricing.LineSeniorPlus)
	}
	for _, v := range append(append([]float64{}, c.Base...), c.Surcharge...) {
		if v < 0 {
			return nil, fmt.Errorf("negative price %v", v)
		}
	}
	for role := range c.RoleFactors {
		r, err := pricing.ParseRole(role)
		if err != nil || !pricing.RoleAllowed(line, r) {
			return nil, fmt.Errorf("role factor for unknown role %q", role)
		}
	}
	maxAge := c.MaxAge
	if maxAge == 0 {
		maxAge = defaultMaxAge
	}

	var out []pricing.TariffRecord
	for _, p := range products {
		product, _ := pricing.LookupProductByName(p)
		tierFactor := factorOr(c.TierFactors, strconv.Itoa(int(product.Tier)))

		for _, z := range zones {
			zoneFactor := factorOr(c.ZoneFactors, string(z))

			for _, role := range pricing.RolesFor(line) {
				roleFactor := factorOr(c.RoleFactors, string(role))

				for _, bracket := range pricing.Brackets(role, line, maxAge) {
					ageFactor := 1.0
					if !role.IsChild() {
						ageFactor = math.Pow(1+c.YearlyIncrease, float64(representativeAge(bracket)-c.ReferenceAge))
					}
					k := tierFactor * zoneFactor * roleFactor * ageFactor

					row := pricing.TariffRow{Role: role, Bracket: bracket}
					for i, v := range c.Base {
						row.Base[i] = curvePrice(v, k)
					}
					for i, v := range c.Surcharge {
						row.Surcharge[i] = curvePrice(v, k)
					}
					if c.HospitalReinforcement != nil {
						row.HospitalReinforcement = decimal.NewNullDecimal(decimal.NewFromFloat(*c.HospitalReinforcement))
					}
					out = append(out, pricing.TariffRecord{ProductLine: line, ProductName: p, Zone: z, Row: row})
				}
			}
		}
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// representativeAge is the age a bracket is priced at when generated from a
// curve: the upper bound of a collapsed young range, the lower bound of a
// collapsed old one, the age itself otherwise.
func representativeAge(b pricing.Bracket) int {
	switch b {
	case pricing.BracketSelfEmployedYouth:
		return 19
	case pricing.BracketSeniorChild:
		return 27
	case pricing.BracketSeniorUnder60:
		return 59
	case pricing.BracketSeniorChildAdult:
		return 28
	case pricing.BracketSeniorCentenarian:
		return 100
	}
	n, _ := strconv.Atoi(string(b))
	return n
}

func validBracket(line pricing.ProductLine, role pricing.Role, b pricing.Bracket) bool {
	for _, known := range pricing.Brackets(role, line, 120) {
		if known == b {
			return true
		}
	}
	return false
}

func nullPrice(p *float64) (decimal.NullDecimal, error) {
	if p == nil {
		return decimal.NullDecimal{}, nil
	}
	if *p < 0 || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return decimal.NullDecimal{}, fmt.Errorf("invalid price %v", *p)
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*p)), nil
}

func curvePrice(v, k float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(pricing.RoundMoney(decimal.NewFromFloat(v * k)))
}

func factorOr(m map[string]float64, key string) float64 {
	if f, ok := m[key]; ok {
		return f
	}
	return 1
}

func containsZone(zones []pricing.Zone, z pricing.Zone) bool {
	for _, known := range zones {
		if known == z {
			return true
		}
	}
	return false
}

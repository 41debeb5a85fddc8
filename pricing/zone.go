package pricing

// =============================================================================
// ZONES - Postal code department to pricing zone
// =============================================================================

const (
	ZoneAlsaceMoselle Zone = "AM"
	ZoneSenior1       Zone = "Z01"
	ZoneSenior2       Zone = "Z02"
)

var seniorZone2Departments = map[string]bool{
	"13": true, "20": true, "31": true, "33": true, "69": true, "75": true, "77": true,
	"78": true, "91": true, "92": true, "93": true, "94": true, "95": true, "99": true,
}

var alsaceMoselleDepartments = map[string]bool{"57": true, "67": true, "68": true}

// ZoneTable maps a department code to a zone for one product line.
type ZoneTable map[string]Zone

// Department returns the department part of a postal code (its first two characters).
func Department(postalCode string) string {
	if len(postalCode) < 2 {
		return postalCode
	}
	return postalCode[:2]
}

// SeniorZone applies the fixed Senior / Senior Plus rule. It never fails.
func SeniorZone(department string) Zone {
	switch {
	case alsaceMoselleDepartments[department]:
		return ZoneAlsaceMoselle
	case seniorZone2Departments[department]:
		return ZoneSenior2
	default:
		return ZoneSenior1
	}
}

// ResolveZone maps a postal code to the pricing zone of line. For the senior
// lines a department found in table wins, otherwise the fixed rule applies.
// For the self-employed line only table is consulted and false means the zone
// cannot be determined.
func ResolveZone(postalCode string, line ProductLine, table ZoneTable) (Zone, bool) {
	dept := Department(postalCode)
	if z, ok := table[dept]; ok && z != "" {
		return z, true
	}
	if line.IsSenior() {
		return SeniorZone(dept), true
	}
	return "", false
}

// SelfEmployedZones lists the five self-employed zones from cheapest to most expensive.
var SelfEmployedZones = []Zone{"Z1", "Z2", "Z3", "Z4", "Z5"}

// DefaultSelfEmployedZones is the reference department table of the TNS
// Formules grid. Departments absent from it (00, 98, 99) have no zone.
func DefaultSelfEmployedZones() ZoneTable {
	byZone := map[Zone][]string{
		"Z1": {"03", "08", "15", "19", "23", "36", "43", "52", "55", "58", "61", "70", "88", "89"},
		"Z2": {"02", "04", "05", "07", "09", "10", "12", "16", "18", "24", "32", "39", "41", "46",
			"47", "48", "53", "65", "71", "79", "80", "81", "82", "86", "87", "90"},
		"Z3": {"11", "14", "17", "21", "22", "25", "26", "27", "28", "29", "35", "37", "40", "42",
			"44", "45", "49", "50", "51", "54", "56", "60", "62", "63", "64", "66", "72", "73",
			"76", "84", "85", "97"},
		"Z4": {"01", "20", "30", "31", "33", "34", "38", "57", "59", "67", "68", "69", "74", "77",
			"78", "83", "91", "95"},
		"Z5": {"06", "13", "75", "92", "93", "94"},
	}
	table := make(ZoneTable)
	for zone, depts := range byZone {
		for _, d := range depts {
			table[d] = zone
		}
	}
	return table
}

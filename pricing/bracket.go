package pricing

import "strconv"

// Band limits of the tariff tables. Outside the single-year range the grids
// do not differentiate premiums, so ages collapse into one bracket per tail.
const (
	selfEmployedYouthMax = 19
	seniorChildMax       = 27
	seniorAdultMin       = 60
	seniorAdultCap       = 100
)

const (
	BracketSelfEmployedYouth Bracket = "0-19"
	BracketSeniorChild       Bracket = "0-27"
	BracketSeniorChildAdult  Bracket = "28+"
	BracketSeniorUnder60     Bracket = "0-59"
	BracketSeniorCentenarian Bracket = "100+"
)

// ResolveBracket maps an age to the tariff age key for role on line.
func ResolveBracket(age int, role Role, line ProductLine) Bracket {
	if line == LineSelfEmployed {
		if age <= selfEmployedYouthMax {
			return BracketSelfEmployedYouth
		}
		return literal(age)
	}

	if role.IsChild() {
		if age <= seniorChildMax {
			return BracketSeniorChild
		}
		return BracketSeniorChildAdult
	}

	switch {
	case age < seniorAdultMin:
		return BracketSeniorUnder60
	case age >= seniorAdultCap:
		return BracketSeniorCentenarian
	default:
		return literal(age)
	}
}

// Brackets enumerates every bracket a grid for role on line must define,
// from youngest to oldest. The self-employed single-year range stops at maxAge.
func Brackets(role Role, line ProductLine, maxAge int) []Bracket {
	if line == LineSelfEmployed {
		out := []Bracket{BracketSelfEmployedYouth}
		for a := selfEmployedYouthMax + 1; a <= maxAge; a++ {
			out = append(out, literal(a))
		}
		return out
	}
	if role.IsChild() {
		return []Bracket{BracketSeniorChild, BracketSeniorChildAdult}
	}
	out := []Bracket{BracketSeniorUnder60}
	for a := seniorAdultMin; a < seniorAdultCap; a++ {
		out = append(out, literal(a))
	}
	return append(out, BracketSeniorCentenarian)
}

func literal(age int) Bracket { return Bracket(strconv.Itoa(age)) }

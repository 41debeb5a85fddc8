/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal pricing model from the external API contract, allowing:
  - Field renaming without breaking clients
  - Dates as "YYYY-MM-DD" strings, money as fixed two-decimal numbers
  - Version evolution

NAMING CONVENTION:
  - *DTO: Types exchanged with clients
  - *Response: Response wrappers

TYPES:
  Quotes:
    QuoteRequestDTO, QuoteResultDTO, BeneficiaryDTO, StoredQuoteDTO

  Reference data:
    ZoneDTO, ProductDTO, TariffRowDTO

  Errors:
    ErrorResponse, FieldErrorDTO

VALIDATION:
  Validation is done by pricing.Validate, not in DTOs. A date that does not
  parse is passed on as the zero Date so the validator reports it on its field.

SEE ALSO:
  - handlers.go: Uses these types
  - pricing/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/store/sqlite"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is a decimal amount serialized as a JSON number with two decimals.
type Money struct {
	decimal.Decimal
}

func money(d decimal.Decimal) Money { return Money{d} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(pricing.MoneyPlaces)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

func nullMoney(d decimal.NullDecimal) *Money {
	if !d.Valid {
		return nil
	}
	m := money(d.Decimal)
	return &m
}

// =============================================================================
// QUOTE TYPES
// =============================================================================

type PersonDTO struct {
	BirthDate string `json:"birth_date" yaml:"birth_date"`
}

type PolicyholderDTO struct {
	BirthDate string `json:"birth_date" yaml:"birth_date"`
	IsAlone   bool   `json:"is_alone,omitempty" yaml:"is_alone,omitempty"`
}

// QuoteRequestDTO is the body of the quote endpoints.
type QuoteRequestDTO struct {
	ProductLine           string          `json:"product_line" yaml:"product_line"`
	PostalCode            string          `json:"postal_code" yaml:"postal_code"`
	EffectiveDate         string          `json:"effective_date" yaml:"effective_date"`
	Policyholder          PolicyholderDTO `json:"policyholder" yaml:"policyholder"`
	Spouse                *PersonDTO      `json:"spouse,omitempty" yaml:"spouse,omitempty"`
	Children              []PersonDTO     `json:"children,omitempty" yaml:"children,omitempty"`
	Option                int             `json:"option" yaml:"option"`
	SupplementaryCover    bool            `json:"supplementary_cover" yaml:"supplementary_cover"`
	HospitalReinforcement bool            `json:"hospital_reinforcement" yaml:"hospital_reinforcement"`
	CommissionTier        int             `json:"commission_tier" yaml:"commission_tier"`
}

// ToQuoteRequest converts the DTO to the engine's request.
func (d QuoteRequestDTO) ToQuoteRequest() pricing.QuoteRequest {
	req := pricing.QuoteRequest{
		ProductLine:           pricing.ProductLine(d.ProductLine),
		PostalCode:            d.PostalCode,
		EffectiveDate:         parseDate(d.EffectiveDate),
		Policyholder:          pricing.Policyholder{BirthDate: parseDate(d.Policyholder.BirthDate), IsAlone: d.Policyholder.IsAlone},
		Option:                pricing.Option(d.Option),
		SupplementaryCover:    d.SupplementaryCover,
		HospitalReinforcement: d.HospitalReinforcement,
		CommissionTier:        pricing.CommissionTier(d.CommissionTier),
	}
	if d.Spouse != nil {
		req.Spouse = &pricing.Person{BirthDate: parseDate(d.Spouse.BirthDate)}
	}
	for _, c := range d.Children {
		req.Children = append(req.Children, pricing.Person{BirthDate: parseDate(c.BirthDate)})
	}
	return req
}

// parseDate leaves malformed dates zero; the validator reports them.
func parseDate(s string) pricing.Date {
	d, err := pricing.ParseDate(s)
	if err != nil {
		return pricing.Date{}
	}
	return d
}

type BeneficiaryDTO struct {
	Label              string `json:"label"`
	Role               string `json:"role"`
	Age                int    `json:"age"`
	Bracket            string `json:"bracket"`
	BasePrice          Money  `json:"base_price"`
	SurchargePrice     Money  `json:"surcharge_price"`
	ReinforcementPrice Money  `json:"reinforcement_price"`
	Total              Money  `json:"total"`
}

type QuoteResultDTO struct {
	MonthlyPremium Money            `json:"monthly_premium"`
	ProductName    string           `json:"product_name"`
	Zone           string           `json:"zone"`
	Details        []BeneficiaryDTO `json:"details"`
}

// NewQuoteResultDTO converts an engine result.
func NewQuoteResultDTO(res pricing.QuoteResult) QuoteResultDTO {
	dto := QuoteResultDTO{
		MonthlyPremium: money(res.MonthlyPremium),
		ProductName:    res.ProductName,
		Zone:           string(res.Zone),
		Details:        make([]BeneficiaryDTO, 0, len(res.Details)),
	}
	for _, d := range res.Details {
		dto.Details = append(dto.Details, BeneficiaryDTO{
			Label:              d.Label,
			Role:               string(d.Role),
			Age:                d.Age,
			Bracket:            string(d.Bracket),
			BasePrice:          money(d.BasePrice),
			SurchargePrice:     money(d.SurchargePrice),
			ReinforcementPrice: money(d.ReinforcementPrice),
			Total:              money(d.Total),
		})
	}
	return dto
}

// StoredQuoteDTO is an archived quote.
type StoredQuoteDTO struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Request   QuoteRequestDTO `json:"request"`
	Result    QuoteResultDTO  `json:"result"`
}

// QuoteSummaryDTO is one line of the quote list.
type QuoteSummaryDTO struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ProductLine    string    `json:"product_line"`
	ProductName    string    `json:"product_name"`
	Zone           string    `json:"zone"`
	MonthlyPremium Money     `json:"monthly_premium"`
}

func toQuoteSummaryDTO(q sqlite.QuoteRecord) QuoteSummaryDTO {
	return QuoteSummaryDTO{
		ID:             q.ID,
		CreatedAt:      q.CreatedAt,
		ProductLine:    string(q.ProductLine),
		ProductName:    q.ProductName,
		Zone:           string(q.Zone),
		MonthlyPremium: money(q.MonthlyPremium),
	}
}

// =============================================================================
// REFERENCE DATA TYPES
// =============================================================================

type ZoneDTO struct {
	PostalCode  string `json:"postal_code"`
	Department  string `json:"department"`
	ProductLine string `json:"product_line"`
	Zone        string `json:"zone"`
}

type ProductDTO struct {
	ProductLine    string `json:"product_line"`
	CommissionTier int    `json:"commission_tier"`
	Code           string `json:"code"`
	Name           string `json:"name"`
}

func toProductDTO(p pricing.Product) ProductDTO {
	return ProductDTO{
		ProductLine:    string(p.Line),
		CommissionTier: int(p.Tier),
		Code:           p.Code,
		Name:           p.Name,
	}
}

// TariffRowDTO is one stored grid row. Undefined prices are null.
type TariffRowDTO struct {
	ProductLine           string   `json:"product_line"`
	ProductName           string   `json:"product_name"`
	Zone                  string   `json:"zone"`
	Role                  string   `json:"role"`
	Bracket               string   `json:"bracket"`
	Base                  []*Money `json:"base"`
	Surcharge             []*Money `json:"surcharge,omitempty"`
	HospitalReinforcement *Money   `json:"hospital_reinforcement,omitempty"`
}

func toTariffRowDTO(rec pricing.TariffRecord) TariffRowDTO {
	dto := TariffRowDTO{
		ProductLine:           string(rec.ProductLine),
		ProductName:           rec.ProductName,
		Zone:                  string(rec.Zone),
		Role:                  string(rec.Row.Role),
		Bracket:               string(rec.Row.Bracket),
		HospitalReinforcement: nullMoney(rec.Row.HospitalReinforcement),
	}
	for _, p := range rec.Row.Base {
		dto.Base = append(dto.Base, nullMoney(p))
	}
	for _, p := range rec.Row.Surcharge {
		if p.Valid {
			for _, s := range rec.Row.Surcharge {
				dto.Surcharge = append(dto.Surcharge, nullMoney(s))
			}
			break
		}
	}
	return dto
}

type TariffListResponse struct {
	Count int            `json:"count"`
	Rows  []TariffRowDTO `json:"rows"`
}

type ImportResponse struct {
	Rows       int `json:"rows"`
	ZoneTables int `json:"zone_tables"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	TariffRows int    `json:"tariff_rows"`
}

// =============================================================================
// ERRORS
// =============================================================================

type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

func toFieldErrorDTOs(errs pricing.ValidationErrors) []FieldErrorDTO {
	out := make([]FieldErrorDTO, len(errs))
	for i, e := range errs {
		out[i] = FieldErrorDTO{Field: e.Field, Message: e.Message}
	}
	return out
}

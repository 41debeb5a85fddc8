/*
handlers.go - HTTP API handlers for the premium rating engine

PURPOSE:
  Exposes the rating engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to pricing.Calculator and the store.

ENDPOINTS:
  Quotes:
    POST   /api/quotes/compute   Compute a quote (nothing stored)
    POST   /api/quotes           Compute and archive a quote
    GET    /api/quotes           Recent archived quotes (?limit=)
    GET    /api/quotes/{id}      One archived quote

  Reference data:
    GET    /api/zones            Zone of a postal code (?postal_code=&product_line=)
    GET    /api/products         Product catalog (?product_line=)
    GET    /api/tariffs          Stored grid rows (?product_line=&product=&zone=&limit=)
    POST   /api/tariffs/import   Load a YAML or JSON grid file

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: SQLite tariff repository and quote archive
  - Calculator: Stateless engine over Store
  - Logger, Metrics

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid request (per-field list in "fields")
  - 404: Zone, product, tariff row or quote not found
  - 422: Tariff grid has no price for the requested option
  - 504: Deadline exceeded
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/warp/premium-engine/factory"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/store/sqlite"
	"go.uber.org/zap"
)

const (
	defaultQuoteLimit  = 50
	defaultTariffLimit = 500
	maxGridFileBytes   = 32 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Calculator *pricing.Calculator
	Logger     *zap.Logger
	Metrics    *Metrics
}

// NewHandler creates a new handler over store.
func NewHandler(store *sqlite.Store, logger *zap.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handler{
		Store:      store,
		Calculator: pricing.NewCalculator(store),
		Logger:     logger,
		Metrics:    metrics,
	}
}

// =============================================================================
// QUOTE ENDPOINTS
// =============================================================================

// ComputeQuote prices a request without storing it.
func (h *Handler) ComputeQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.compute(r.Context(), req)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NewQuoteResultDTO(res))
}

// CreateQuote prices a request and archives it.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.compute(r.Context(), req)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}

	result := NewQuoteResultDTO(res)
	requestJSON, _ := json.Marshal(req)
	resultJSON, _ := json.Marshal(result)

	record := &sqlite.QuoteRecord{
		ProductLine:    pricing.ProductLine(req.ProductLine),
		ProductName:    res.ProductName,
		Zone:           res.Zone,
		MonthlyPremium: res.MonthlyPremium,
		RequestJSON:    string(requestJSON),
		ResultJSON:     string(resultJSON),
	}
	if err := h.Store.SaveQuote(r.Context(), record); err != nil {
		h.Logger.Error("failed to save quote", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save quote", err)
		return
	}

	writeJSON(w, http.StatusCreated, StoredQuoteDTO{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
		Request:   req,
		Result:    result,
	})
}

// GetQuote returns an archived quote.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.Store.GetQuote(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get quote", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Quote not found", nil)
		return
	}

	dto := StoredQuoteDTO{ID: record.ID, CreatedAt: record.CreatedAt}
	if err := json.Unmarshal([]byte(record.RequestJSON), &dto.Request); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt quote record", err)
		return
	}
	if err := json.Unmarshal([]byte(record.ResultJSON), &dto.Result); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt quote record", err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// ListQuotes returns the most recent archived quotes.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultQuoteLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	records, err := h.Store.ListQuotes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list quotes", err)
		return
	}

	out := make([]QuoteSummaryDTO, 0, len(records))
	for _, q := range records {
		out = append(out, toQuoteSummaryDTO(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) compute(ctx context.Context, dto QuoteRequestDTO) (pricing.QuoteResult, error) {
	req := dto.ToQuoteRequest()

	start := time.Now()
	res, err := h.Calculator.ComputeQuote(ctx, req)
	h.Metrics.ObserveQuote(req.ProductLine, err, time.Since(start))

	return res, err
}

// =============================================================================
// REFERENCE DATA ENDPOINTS
// =============================================================================

// ResolveZone returns the pricing zone of a postal code for a product line.
func (h *Handler) ResolveZone(w http.ResponseWriter, r *http.Request) {
	postal := r.URL.Query().Get("postal_code")
	line := pricing.ProductLine(r.URL.Query().Get("product_line"))

	var errs pricing.ValidationErrors
	if !pricing.ValidPostalCode(postal) {
		errs = append(errs, pricing.FieldError{Field: pricing.FieldPostalCode, Message: "postal code must be exactly 5 digits"})
	}
	if !line.Valid() {
		errs = append(errs, pricing.FieldError{Field: pricing.FieldProductLine, Message: "unknown product line"})
	}
	if len(errs) > 0 {
		h.writeQuoteError(w, r, &pricing.InvalidInputError{Errors: errs})
		return
	}

	zone, ok, err := h.Store.ResolveZone(r.Context(), postal, line)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	if !ok {
		h.writeQuoteError(w, r, &pricing.ZoneNotFoundError{
			PostalCode:  postal,
			Department:  pricing.Department(postal),
			ProductLine: line,
		})
		return
	}

	writeJSON(w, http.StatusOK, ZoneDTO{
		PostalCode:  postal,
		Department:  pricing.Department(postal),
		ProductLine: string(line),
		Zone:        string(zone),
	})
}

// ListProducts returns the catalog, optionally for one line.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("product_line")
	if filter != "" && !pricing.ProductLine(filter).Valid() {
		writeError(w, http.StatusBadRequest, "Unknown product line", nil)
		return
	}

	out := []ProductDTO{}
	for _, p := range pricing.Catalog() {
		if filter == "" || string(p.Line) == filter {
			out = append(out, toProductDTO(p))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListTariffs returns stored grid rows.
func (h *Handler) ListTariffs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.TariffFilter{
		ProductLine: pricing.ProductLine(q.Get("product_line")),
		ProductName: q.Get("product"),
		Zone:        pricing.Zone(q.Get("zone")),
	}
	if filter.ProductLine != "" && !filter.ProductLine.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown product line", nil)
		return
	}

	limit, err := queryInt(r, "limit", defaultTariffLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	filter.Limit = limit

	records, err := h.Store.ListTariffs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tariffs", err)
		return
	}

	resp := TariffListResponse{Count: len(records), Rows: make([]TariffRowDTO, 0, len(records))}
	for _, rec := range records {
		resp.Rows = append(resp.Rows, toTariffRowDTO(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ImportTariffs loads a grid file posted as the request body.
func (h *Handler) ImportTariffs(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGridFileBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read grid file", err)
		return
	}

	bundle, err := factory.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grid file", err)
		return
	}

	if err := factory.Seed(r.Context(), h.Store, bundle); err != nil {
		h.Logger.Error("grid import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to import grid", err)
		return
	}

	h.Metrics.ObserveImport(len(bundle.Records))
	h.Logger.Info("grid imported",
		zap.Int("rows", len(bundle.Records)),
		zap.Int("zone_tables", len(bundle.Zones)),
	)

	writeJSON(w, http.StatusOK, ImportResponse{Rows: len(bundle.Records), ZoneTables: len(bundle.Zones)})
}

// Health reports liveness and the number of tariff rows loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.CountTariffs(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", TariffRows: count})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeQuoteError maps engine errors to HTTP statuses.
func (h *Handler) writeQuoteError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.Logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var invalid *pricing.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid quote request",
			Details: err.Error(),
			Fields:  toFieldErrorDTOs(invalid.Errors),
		})

	case pricing.IsNotFound(err):
		log.Info("quote lookup failed", zap.Error(err))
		writeError(w, http.StatusNotFound, "Not found", err)

	case pricing.IsGridError(err):
		log.Error("malformed tariff grid", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "Tariff grid incomplete", err)

	case errors.Is(err, context.DeadlineExceeded):
		log.Error("quote timed out", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "Timeout", err)

	default:
		log.Error("quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}

/*
handlers.go - HTTP API handlers for the loyalty platform

PURPOSE:
  Exposes the loyalty engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates every decision to the domain layer. This is
  thin I/O glue by design: no business rule lives here.

ENDPOINTS:
  Customers:
    POST   /api/signup                     Capture QR-code sign-up (webhook)
    GET    /api/customers?store={id}       List a store's customers
    GET    /api/customers/{id}             Get customer profile
    GET    /api/customers/{id}/transactions Purchase history
    POST   /api/customers/{id}/purchases   Track a purchase
    POST   /api/customers/{id}/feedback    Submit feedback (sentiment flow)
    POST   /api/customers/{id}/archive     Soft-archive

  Campaigns:
    POST   /api/campaigns/run              Run automated campaigns

  Reports:
    POST   /api/reports/generate           Generate+persist a period report
    GET    /api/reports/{storeID}          Fetch a stored report

  Scenarios (development only):
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Seed a demo scenario

ERROR HANDLING:
  Errors map to HTTP status by classification:
  - 400: Validation errors, malformed input
  - 404: Unknown customer/report
  - 409: Duplicate send window (expected collision)
  - 502: Collaborator (sentiment/delivery) failures
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bobaclub/loyalty-engine/campaign"
	"github.com/bobaclub/loyalty-engine/loyalty"
	"github.com/bobaclub/loyalty-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  loyalty.Store
	Runner *campaign.Runner
	Config loyalty.Config

	// Clock is swappable for tests; defaults to time.Now.
	Clock func() time.Time

	currentScenario string
}

// NewHandler creates a handler around a store and campaign runner.
func NewHandler(store loyalty.Store, runner *campaign.Runner, cfg loyalty.Config) *Handler {
	return &Handler{
		Store:  store,
		Runner: runner,
		Config: cfg.Normalize(),
		Clock:  time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// CaptureSignup handles the QR-code sign-up webhook.
func (h *Handler) CaptureSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var birth *time.Time
	if req.BirthDate != "" {
		t, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
			return
		}
		birth = &t
	}

	now := h.now()
	c, err := h.Runner.CaptureSignup(r.Context(), campaign.SignupInput{
		CustomerID:      loyalty.CustomerID(req.CustomerID),
		StoreID:         loyalty.StoreID(req.StoreID),
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		FavoriteProduct: req.FavoriteProduct,
		BirthDate:       birth,
	}, now)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerDTO(c, now, h.Config))
}

// ListCustomers returns a store's non-archived customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store")
	if storeID == "" {
		writeJSONError(w, http.StatusBadRequest, "store query parameter required")
		return
	}

	customers, err := h.Store.ListCustomers(r.Context(), loyalty.StoreID(storeID))
	if err != nil {
		writeError(w, err)
		return
	}

	now := h.now()
	dtos := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		dtos = append(dtos, toCustomerDTO(c, now, h.Config))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCustomer returns one customer profile.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CustomerID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c, h.now(), h.Config))
}

// GetTransactions returns a customer's purchase history.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CustomerID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetCustomer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	txs, err := h.Store.TransactionsByCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	type txDTO struct {
		ID        string   `json:"id"`
		StoreID   string   `json:"store_id"`
		Amount    string   `json:"amount"`
		Items     []string `json:"items,omitempty"`
		Timestamp string   `json:"timestamp"`
	}
	dtos := make([]txDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, txDTO{
			ID:        string(tx.ID),
			StoreID:   string(tx.StoreID),
			Amount:    tx.Amount.StringFixed(2),
			Items:     tx.Items,
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TrackPurchase records a purchase and updates the loyalty profile.
func (h *Handler) TrackPurchase(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CustomerID(chi.URLParam(r, "id"))

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Amount == "" {
		writeJSONError(w, http.StatusBadRequest, "total_amount required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "total_amount must be a decimal number")
		return
	}

	ts := h.now()
	if req.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "timestamp must be RFC3339")
			return
		}
		ts = t
	}

	result, err := h.Runner.TrackPurchase(r.Context(), id, loyalty.StoreID(req.StoreID), amount, req.Items, ts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PurchaseDTO{
		Customer:     toCustomerDTO(result.Customer, ts, h.Config),
		PointsEarned: result.PointsEarned,
		Milestone:    result.Milestone,
	})
}

// SubmitFeedback scores feedback and runs the negative-sentiment flow.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CustomerID(chi.URLParam(r, "id"))

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.Runner.HandleFeedback(r.Context(), id, req.Text, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ArchiveCustomer soft-deletes a customer.
func (h *Handler) ArchiveCustomer(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CustomerID(chi.URLParam(r, "id"))

	if err := h.Store.ArchiveCustomer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CAMPAIGN HANDLERS
// =============================================================================

// RunCampaigns triggers the automated campaign run for a store.
func (h *Handler) RunCampaigns(w http.ResponseWriter, r *http.Request) {
	var req RunCampaignsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StoreID == "" {
		writeJSONError(w, http.StatusBadRequest, "store_id required")
		return
	}

	now := h.now()
	if req.Now != "" {
		t, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "now must be RFC3339")
			return
		}
		now = t
	}

	results, err := h.Runner.RunCampaigns(r.Context(), loyalty.StoreID(req.StoreID), now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GenerateReport aggregates a store's transactions for a period and persists
// the canonical report. Re-running for the same period overwrites.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StoreID == "" {
		writeJSONError(w, http.StatusBadRequest, "store_id required")
		return
	}

	anchor := h.now()
	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		anchor = t
	}

	period, err := report.PeriodFor(report.PeriodType(req.Period), anchor)
	if err != nil {
		writeError(w, err)
		return
	}

	storeID := loyalty.StoreID(req.StoreID)
	txs, err := h.Store.TransactionsInRange(r.Context(), storeID, period.Start, period.End)
	if err != nil {
		writeError(w, err)
		return
	}

	// Every customer on file is a loyalty member; walk-ins have no record.
	customers, err := h.Store.ListCustomers(r.Context(), storeID)
	if err != nil {
		writeError(w, err)
		return
	}
	members := make(map[loyalty.CustomerID]bool, len(customers))
	for _, c := range customers {
		members[c.ID] = true
	}

	rep, err := report.Aggregate(txs, period, storeID, members, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.SaveReport(r.Context(), loyalty.ReportRecord{
		ID:          rep.ID,
		StoreID:     rep.StoreID,
		PeriodType:  string(rep.PeriodType),
		PeriodStart: rep.PeriodStart,
		PeriodEnd:   rep.PeriodEnd,
		GeneratedAt: rep.GeneratedAt,
		PayloadJSON: string(payload),
	}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// GetReport fetches the stored report for a (store, period).
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	storeID := loyalty.StoreID(chi.URLParam(r, "storeID"))
	periodType := r.URL.Query().Get("period")
	dateStr := r.URL.Query().Get("date")

	if periodType == "" {
		periodType = string(report.PeriodDaily)
	}
	anchor := h.now()
	if dateStr != "" {
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		anchor = t
	}

	period, err := report.PeriodFor(report.PeriodType(periodType), anchor)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.Store.GetReport(r.Context(), storeID, string(period.Type), period.Start)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rec.PayloadJSON))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case loyalty.IsClientError(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case loyalty.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case loyalty.IsConflict(err):
		writeJSONError(w, http.StatusConflict, err.Error())
	case loyalty.IsRetryable(err):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

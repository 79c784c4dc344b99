/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a loyalty profile in API responses.
type CustomerDTO struct {
	ID              string  `json:"id"`
	StoreID         string  `json:"store_id"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone,omitempty"`
	Email           string  `json:"email,omitempty"`
	FavoriteProduct string  `json:"favorite_product,omitempty"`
	SignupDate      string  `json:"signup_date"`
	TotalVisits     int     `json:"total_visits"`
	TotalSpent      string  `json:"total_spent"`
	LoyaltyPoints   int64   `json:"loyalty_points"`
	LastVisit       *string `json:"last_visit,omitempty"`
	BirthDate       *string `json:"birth_date,omitempty"`
	Status          string  `json:"status"`
}

// SignupRequest is a sign-up event from the QR-code webhook. The webhook
// retries with the same customer_id, so replays carry it and first
// deliveries leave it empty.
type SignupRequest struct {
	CustomerID      string `json:"customer_id,omitempty"`
	StoreID         string `json:"store_id"`
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	FavoriteProduct string `json:"favorite_drink,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"` // YYYY-MM-DD
}

// =============================================================================
// PURCHASES
// =============================================================================

// PurchaseRequest tracks a purchase for a customer.
type PurchaseRequest struct {
	StoreID   string   `json:"store_id"`
	Amount    string   `json:"total_amount"`
	Items     []string `json:"items,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"` // RFC3339; defaults to now
}

// PurchaseDTO is the ledger outcome of a tracked purchase.
type PurchaseDTO struct {
	Customer     CustomerDTO `json:"customer"`
	PointsEarned int64       `json:"points_earned"`
	Milestone    int         `json:"milestone,omitempty"`
}

// =============================================================================
// FEEDBACK
// =============================================================================

type FeedbackRequest struct {
	Text string `json:"text"`
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

type RunCampaignsRequest struct {
	StoreID string `json:"store_id"`
	Now     string `json:"now,omitempty"` // RFC3339; defaults to wall clock
}

// =============================================================================
// REPORTS
// =============================================================================

type GenerateReportRequest struct {
	StoreID string `json:"store_id"`
	Period  string `json:"period"`         // daily, weekly, monthly
	Date    string `json:"date,omitempty"` // YYYY-MM-DD anchor; defaults to today
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCustomerDTO(c loyalty.Customer, now time.Time, cfg loyalty.Config) CustomerDTO {
	dto := CustomerDTO{
		ID:              string(c.ID),
		StoreID:         string(c.StoreID),
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		FavoriteProduct: c.FavoriteProduct,
		SignupDate:      c.SignupDate.UTC().Format(time.RFC3339),
		TotalVisits:     c.TotalVisits,
		TotalSpent:      c.TotalSpent.StringFixed(2),
		LoyaltyPoints:   c.LoyaltyPoints,
		Status:          string(c.Status(now, cfg.InactiveDays)),
	}
	if c.LastVisit != nil {
		s := c.LastVisit.UTC().Format(time.RFC3339)
		dto.LastVisit = &s
	}
	if c.BirthDate != nil {
		s := c.BirthDate.UTC().Format("2006-01-02")
		dto.BirthDate = &s
	}
	return dto
}

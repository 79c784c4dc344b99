/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates customers and
	purchases that demonstrate a specific engine feature.

AVAILABLE SCENARIOS:

	grand-opening:   Fresh signups with purchases today (reports, recommendations)
	lapsed-regulars: Customers who stopped visiting past the inactivity threshold
	birthday-week:   Customers with birthdays on and around today
	milestone-chase: A regular one purchase away from a visit milestone

HOW SCENARIOS WORK:
 1. Sign customers up through the runner (welcome bonus included)
 2. Track purchases at the timestamps the scenario needs
 3. Each load creates fresh customer ids; data accumulates across loads

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "lapsed-regulars"}

NOTE:

	Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context
  - campaign/runner.go: Signup and purchase flows
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bobaclub/loyalty-engine/campaign"
	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

const scenarioStore = loyalty.StoreID("STORE-001")

var scenarios = []ScenarioDTO{
	{
		ID:          "grand-opening",
		Name:        "Grand Opening",
		Description: "Fresh signups with same-day purchases: feeds daily reports and recommendations",
		Category:    "loyalty",
	},
	{
		ID:          "lapsed-regulars",
		Name:        "Lapsed Regulars",
		Description: "Customers past the inactivity threshold: feeds the we-miss-you campaign",
		Category:    "campaigns",
	},
	{
		ID:          "birthday-week",
		Name:        "Birthday Week",
		Description: "Customers with birthdays today and later this week",
		Category:    "campaigns",
	},
	{
		ID:          "milestone-chase",
		Name:        "Milestone Chase",
		Description: "A regular at 4 visits, one purchase away from the first milestone",
		Category:    "loyalty",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario seeds a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "grand-opening":
		err = h.loadGrandOpeningScenario(ctx)
	case "lapsed-regulars":
		err = h.loadLapsedRegularsScenario(ctx)
	case "birthday-week":
		err = h.loadBirthdayWeekScenario(ctx)
	case "milestone-chase":
		err = h.loadMilestoneChaseScenario(ctx)
	default:
		writeJSONError(w, http.StatusBadRequest, "unknown scenario_id")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seedSignup struct {
	name     string
	favorite string
	birth    *time.Time
}

func (h *Handler) seedCustomers(ctx context.Context, seeds []seedSignup, signedUp time.Time) ([]loyalty.Customer, error) {
	customers := make([]loyalty.Customer, 0, len(seeds))
	for _, s := range seeds {
		c, err := h.Runner.CaptureSignup(ctx, campaign.SignupInput{
			StoreID:         scenarioStore,
			Name:            s.name,
			Phone:           "555-0100",
			FavoriteProduct: s.favorite,
			BirthDate:       s.birth,
		}, signedUp)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// loadGrandOpeningScenario seeds fresh signups with purchases today, so a
// daily report and the recommendation campaign have something to chew on.
func (h *Handler) loadGrandOpeningScenario(ctx context.Context) error {
	now := h.now()

	customers, err := h.seedCustomers(ctx, []seedSignup{
		{name: "Mei Chen", favorite: "Taro Milk Tea"},
		{name: "Jordan Lee", favorite: "Brown Sugar Boba"},
		{name: "Sam Okafor", favorite: "Matcha Latte"},
	}, now.Add(-2*time.Hour))
	if err != nil {
		return err
	}

	purchases := []struct {
		amount string
		items  []string
		offset time.Duration
	}{
		{"12.50", []string{"Taro Milk Tea", "Egg Waffle"}, -90 * time.Minute},
		{"6.75", []string{"Brown Sugar Boba"}, -60 * time.Minute},
		{"15.00", []string{"Matcha Latte", "Taro Milk Tea"}, -30 * time.Minute},
	}
	for i, c := range customers {
		p := purchases[i]
		if _, err := h.Runner.TrackPurchase(ctx, c.ID, scenarioStore,
			loyalty.ParseMoneyOrZero(p.amount), p.items, now.Add(p.offset)); err != nil {
			return err
		}
	}
	return nil
}

// loadLapsedRegularsScenario seeds customers whose last visit is past the
// inactivity threshold, at staggered depths.
func (h *Handler) loadLapsedRegularsScenario(ctx context.Context) error {
	now := h.now()
	threshold := h.Config.InactiveDays

	customers, err := h.seedCustomers(ctx, []seedSignup{
		{name: "Ana Reyes", favorite: "Jasmine Green Tea"},
		{name: "Kofi Mensah", favorite: "Taro Milk Tea"},
	}, now.AddDate(0, -6, 0))
	if err != nil {
		return err
	}

	// Last visits at threshold+5 and threshold+20 days ago.
	for i, c := range customers {
		lastVisit := now.AddDate(0, 0, -(threshold + 5 + i*15))
		if _, err := h.Runner.TrackPurchase(ctx, c.ID, scenarioStore,
			loyalty.ParseMoneyOrZero("8.00"), []string{c.FavoriteProduct}, lastVisit); err != nil {
			return err
		}
	}
	return nil
}

// loadBirthdayWeekScenario seeds one customer whose birthday is today and two
// whose birthdays fall later this week.
func (h *Handler) loadBirthdayWeekScenario(ctx context.Context) error {
	now := h.now()

	birthOn := func(daysAhead int) *time.Time {
		d := now.AddDate(-30, 0, daysAhead)
		return &d
	}

	customers, err := h.seedCustomers(ctx, []seedSignup{
		{name: "Mei Chen", favorite: "Taro Milk Tea", birth: birthOn(0)},
		{name: "Jordan Lee", favorite: "Brown Sugar Boba", birth: birthOn(2)},
		{name: "Sam Okafor", favorite: "", birth: birthOn(5)},
	}, now.AddDate(0, -3, 0))
	if err != nil {
		return err
	}

	// A visit two weeks back keeps them out of every other campaign window.
	for _, c := range customers {
		if _, err := h.Runner.TrackPurchase(ctx, c.ID, scenarioStore,
			loyalty.ParseMoneyOrZero("9.25"), []string{"Taro Milk Tea"}, now.AddDate(0, 0, -14)); err != nil {
			return err
		}
	}
	return nil
}

// loadMilestoneChaseScenario seeds a regular with 4 visits; the next tracked
// purchase lands on the 5-visit milestone.
func (h *Handler) loadMilestoneChaseScenario(ctx context.Context) error {
	now := h.now()

	customers, err := h.seedCustomers(ctx, []seedSignup{
		{name: "Priya Nair", favorite: "Mango Green Tea"},
	}, now.AddDate(0, -2, 0))
	if err != nil {
		return err
	}

	c := customers[0]
	for week := 4; week >= 1; week-- {
		if _, err := h.Runner.TrackPurchase(ctx, c.ID, scenarioStore,
			loyalty.ParseMoneyOrZero("7.50"), []string{"Mango Green Tea"}, now.AddDate(0, 0, -7*week)); err != nil {
			return err
		}
	}
	return nil
}

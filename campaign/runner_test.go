package campaign_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobaclub/loyalty-engine/campaign"
	"github.com/bobaclub/loyalty-engine/loyalty"
	"github.com/bobaclub/loyalty-engine/loyalty/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// recordingMessenger captures deliveries and alerts, optionally failing.
type recordingMessenger struct {
	mu         sync.Mutex
	delivered  []deliveredMessage
	alerts     []string
	deliverErr error
}

type deliveredMessage struct {
	customerID loyalty.CustomerID
	kind       loyalty.CampaignKind
	message    string
}

func (m *recordingMessenger) Deliver(_ context.Context, c loyalty.Customer, kind loyalty.CampaignKind, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliverErr != nil {
		return m.deliverErr
	}
	m.delivered = append(m.delivered, deliveredMessage{customerID: c.ID, kind: kind, message: message})
	return nil
}

func (m *recordingMessenger) Alert(_ context.Context, _ loyalty.StoreID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, message)
	return nil
}

func (m *recordingMessenger) byKind(kind loyalty.CampaignKind) []deliveredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []deliveredMessage
	for _, d := range m.delivered {
		if d.kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// failingGenerator errors on every call.
type failingGenerator struct{}

func (failingGenerator) SentimentScore(context.Context, string) (float64, error) {
	return 0, errors.New("sentiment service down")
}
func (failingGenerator) Message(context.Context, loyalty.CampaignKind, loyalty.Customer, *campaign.Offer) (string, error) {
	return "", errors.New("content service down")
}
func (failingGenerator) Recommendations(context.Context, loyalty.Customer) ([]string, error) {
	return nil, errors.New("content service down")
}

// =============================================================================
// TEST SETUP
// =============================================================================

const testStore = loyalty.StoreID("STORE-001")

func newTestRunner(t *testing.T, gen campaign.Generator) (*campaign.Runner, *store.Memory, *recordingMessenger) {
	t.Helper()
	mem := store.NewMemory()
	msg := &recordingMessenger{}
	if gen == nil {
		gen = &campaign.StaticGenerator{}
	}
	return campaign.NewRunner(mem, gen, msg, loyalty.DefaultConfig()), mem, msg
}

func seedCustomer(t *testing.T, mem *store.Memory, id string, lastVisit *time.Time, birth *time.Time) loyalty.Customer {
	t.Helper()
	c := loyalty.Customer{
		ID:              loyalty.CustomerID(id),
		StoreID:         testStore,
		Name:            "Mei",
		Phone:           "555-0100",
		FavoriteProduct: "Taro Milk Tea",
		SignupDate:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		LoyaltyPoints:   100,
		LastVisit:       lastVisit,
		BirthDate:       birth,
	}
	if lastVisit != nil {
		c.TotalVisits = 3
	}
	require.NoError(t, mem.UpsertCustomer(context.Background(), c))
	return c
}

func tsPtr(t time.Time) *time.Time { return &t }

// =============================================================================
// SIGNUP TESTS
// =============================================================================

func TestCaptureSignup_CreatesProfileAndGreets(t *testing.T) {
	// GIVEN: A signup event with a name and phone
	// WHEN: Captured
	// THEN: Profile persisted with the welcome bonus; a greeting is delivered

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)

	c, err := runner.CaptureSignup(ctx, campaign.SignupInput{
		StoreID:         testStore,
		Name:            "Mei",
		Phone:           "555-0100",
		FavoriteProduct: "Taro Milk Tea",
	}, now)
	require.NoError(t, err)

	assert.Contains(t, string(c.ID), "CUST-")
	assert.Equal(t, int64(100), c.LoyaltyPoints)

	stored, err := mem.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mei", stored.Name)

	greetings := msg.byKind("welcome")
	require.Len(t, greetings, 1)
	assert.Contains(t, greetings[0].message, "Welcome to Boba Club, Mei")
	assert.Contains(t, greetings[0].message, "100 points")
}

func TestCaptureSignup_InvalidInput_Rejected(t *testing.T) {
	// GIVEN: A signup with no contact channel
	// WHEN: Captured
	// THEN: Rejected and nothing is persisted or sent

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()

	_, err := runner.CaptureSignup(ctx, campaign.SignupInput{StoreID: testStore, Name: "Mei"}, time.Now())
	assert.True(t, loyalty.IsClientError(err))

	all, err := mem.ListCustomers(ctx, testStore)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, msg.delivered)
}

func TestCaptureSignup_Replay_ExistingProfile_Untouched(t *testing.T) {
	// GIVEN: A captured signup followed by a purchase
	// WHEN: The same signup event arrives again with the assigned id
	// THEN: The live profile is returned as-is; no second bonus or greeting

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)

	in := campaign.SignupInput{StoreID: testStore, Name: "Mei", Phone: "555-0100"}
	c, err := runner.CaptureSignup(ctx, in, now)
	require.NoError(t, err)

	_, err = runner.TrackPurchase(ctx, c.ID, testStore, loyalty.ParseMoneyOrZero("8.00"), nil, now.Add(time.Hour))
	require.NoError(t, err)

	in.CustomerID = c.ID
	replayed, err := runner.CaptureSignup(ctx, in, now.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(108), replayed.LoyaltyPoints)
	assert.Equal(t, 1, replayed.TotalVisits)
	assert.Len(t, msg.byKind("welcome"), 1)

	stored, err := mem.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(108), stored.LoyaltyPoints)
}

func TestCaptureSignup_Replay_LedgerOnly_NoBonus(t *testing.T) {
	// GIVEN: A customer id with purchase history but no surviving profile
	// WHEN: The signup event for that id is replayed
	// THEN: The profile is rebuilt without the welcome bonus or greeting

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)

	id := loyalty.CustomerID("CUST-REPLAY")
	require.NoError(t, mem.AppendTransaction(ctx, loyalty.Transaction{
		ID:         "TXN-1",
		CustomerID: id,
		StoreID:    testStore,
		Amount:     loyalty.ParseMoneyOrZero("6.50"),
		Timestamp:  now.Add(-24 * time.Hour),
	}))

	c, err := runner.CaptureSignup(ctx, campaign.SignupInput{
		CustomerID: id,
		StoreID:    testStore,
		Name:       "Mei",
		Phone:      "555-0100",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, id, c.ID)
	assert.Equal(t, int64(0), c.LoyaltyPoints)
	assert.Empty(t, msg.byKind("welcome"))
}

// =============================================================================
// PURCHASE TESTS
// =============================================================================

func TestTrackPurchase_UpdatesLedger(t *testing.T) {
	// GIVEN: An existing customer
	// WHEN: A $12.50 purchase is tracked
	// THEN: 12 points earned, transaction appended, profile updated

	runner, mem, _ := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	seedCustomer(t, mem, "cust-1", nil, nil)

	res, err := runner.TrackPurchase(ctx, "cust-1", testStore, loyalty.ParseMoneyOrZero("12.50"), []string{"Taro Milk Tea"}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(12), res.PointsEarned)
	assert.Equal(t, int64(112), res.Customer.LoyaltyPoints)
	assert.Equal(t, 0, res.Milestone)

	txs, err := mem.TransactionsByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, []string{"Taro Milk Tea"}, txs[0].Items)
}

func TestTrackPurchase_UnknownCustomer(t *testing.T) {
	// GIVEN: No such customer
	// WHEN: A purchase is tracked
	// THEN: Not-found, nothing recorded

	runner, mem, _ := newTestRunner(t, nil)
	ctx := context.Background()

	_, err := runner.TrackPurchase(ctx, "ghost", testStore, loyalty.ParseMoneyOrZero("5.00"), nil, time.Now())
	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)

	txs, err := mem.TransactionsByCustomer(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTrackPurchase_MilestoneReward_FiresOnce(t *testing.T) {
	// GIVEN: A customer at 4 visits
	// WHEN: The 5th visit is tracked
	// THEN: The milestone reward is delivered once; replays stay silent

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)

	c := seedCustomer(t, mem, "cust-1", tsPtr(now.AddDate(0, 0, -1)), nil)
	c.TotalVisits = 4
	require.NoError(t, mem.UpsertCustomer(ctx, c))

	res, err := runner.TrackPurchase(ctx, "cust-1", testStore, loyalty.ParseMoneyOrZero("6.00"), nil, now)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Milestone)

	rewards := msg.byKind(loyalty.CampaignMilestone)
	require.Len(t, rewards, 1)
	assert.Contains(t, rewards[0].message, "5 visits")
	assert.True(t, mem.Sent("cust-1", loyalty.CampaignMilestone, "visits-5"))
}

// =============================================================================
// CAMPAIGN RUN TESTS
// =============================================================================

func TestRunCampaigns_MixedPopulation(t *testing.T) {
	// GIVEN: An inactive customer, a birthday customer, a recent visitor,
	//        and an active non-birthday customer
	// WHEN: Campaigns run
	// THEN: Each eligible customer gets exactly their campaign

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)

	seedCustomer(t, mem, "lapsed", tsPtr(now.AddDate(0, 0, -40)), nil)
	seedCustomer(t, mem, "bday", tsPtr(now.AddDate(0, 0, -10)),
		tsPtr(time.Date(1990, time.June, 5, 0, 0, 0, 0, time.UTC)))
	seedCustomer(t, mem, "recent", tsPtr(now.AddDate(0, 0, -2)), nil)
	seedCustomer(t, mem, "quiet", tsPtr(now.AddDate(0, 0, -15)), nil)

	results, err := runner.RunCampaigns(ctx, testStore, now)
	require.NoError(t, err)

	byKind := map[loyalty.CampaignKind]campaign.Result{}
	for _, r := range results {
		byKind[r.Kind] = r
	}

	assert.Equal(t, 1, byKind[loyalty.CampaignWeMissYou].Dispatched)
	assert.Equal(t, 1, byKind[loyalty.CampaignBirthday].Dispatched)
	assert.Equal(t, 1, byKind[loyalty.CampaignRecommendation].Dispatched)

	missYou := msg.byKind(loyalty.CampaignWeMissYou)
	require.Len(t, missYou, 1)
	assert.Equal(t, loyalty.CustomerID("lapsed"), missYou[0].customerID)
	assert.Contains(t, missYou[0].message, "We miss you")

	bday := msg.byKind(loyalty.CampaignBirthday)
	require.Len(t, bday, 1)
	assert.Contains(t, bday[0].message, "free Taro Milk Tea")

	recs := msg.byKind(loyalty.CampaignRecommendation)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].message, "Taro Milk Tea")
}

func TestRunCampaigns_SecondRun_SkipsConsumedWindows(t *testing.T) {
	// GIVEN: A campaign run that already messaged an inactive customer
	// WHEN: The run repeats the next day
	// THEN: The customer counts as skipped, not dispatched again

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)

	seedCustomer(t, mem, "lapsed", tsPtr(now.AddDate(0, 0, -40)), nil)

	_, err := runner.RunCampaigns(ctx, testStore, now)
	require.NoError(t, err)

	results, err := runner.RunCampaigns(ctx, testStore, now.AddDate(0, 0, 1))
	require.NoError(t, err)

	for _, r := range results {
		if r.Kind == loyalty.CampaignWeMissYou {
			assert.Equal(t, 1, r.Targets)
			assert.Equal(t, 0, r.Dispatched)
			assert.Equal(t, 1, r.Skipped)
		}
	}
	assert.Len(t, msg.byKind(loyalty.CampaignWeMissYou), 1, "only the first run delivers")
}

func TestRunCampaigns_DeliveryFailure_NoSendRecord(t *testing.T) {
	// GIVEN: A messenger that fails every delivery
	// WHEN: Campaigns run, then the messenger recovers and they run again
	// THEN: The failure leaves the window open; the retry dispatches

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)

	seedCustomer(t, mem, "lapsed", tsPtr(now.AddDate(0, 0, -40)), nil)
	msg.deliverErr = errors.New("SMS gateway down")

	results, err := runner.RunCampaigns(ctx, testStore, now)
	require.NoError(t, err)
	for _, r := range results {
		if r.Kind == loyalty.CampaignWeMissYou {
			assert.Equal(t, 1, r.Failed)
			assert.Equal(t, 0, r.Dispatched)
		}
	}
	assert.False(t, mem.Sent("lapsed", loyalty.CampaignWeMissYou, loyalty.InactivityEpisodeKey(now.AddDate(0, 0, -40), 30)),
		"a failed delivery must not consume the window")

	msg.deliverErr = nil
	results, err = runner.RunCampaigns(ctx, testStore, now)
	require.NoError(t, err)
	for _, r := range results {
		if r.Kind == loyalty.CampaignWeMissYou {
			assert.Equal(t, 1, r.Dispatched)
		}
	}
}

func TestRunCampaigns_ArchivedCustomer_Ignored(t *testing.T) {
	// GIVEN: An archived customer who would be inactive
	// WHEN: Campaigns run
	// THEN: Zero targets

	runner, mem, msg := newTestRunner(t, nil)
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)

	seedCustomer(t, mem, "lapsed", tsPtr(now.AddDate(0, 0, -40)), nil)
	require.NoError(t, mem.ArchiveCustomer(ctx, "lapsed"))

	results, err := runner.RunCampaigns(ctx, testStore, now)
	require.NoError(t, err)
	for _, r := range results {
		assert.Zero(t, r.Targets)
	}
	assert.Empty(t, msg.delivered)
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func TestHandleFeedback_Negative_AlertsAndApologizes(t *testing.T) {
	// GIVEN: Feedback scoring -0.8 from the sentiment collaborator
	// WHEN: Handled
	// THEN: Manager alerted, apology delivered, incident window recorded

	runner, mem, msg := newTestRunner(t, &campaign.StaticGenerator{Score: -0.8})
	ctx := context.Background()
	now := time.Date(2025, time.June, 5, 16, 0, 0, 0, time.UTC)
	seedCustomer(t, mem, "cust-1", tsPtr(now.AddDate(0, 0, -1)), nil)

	res, err := runner.HandleFeedback(ctx, "cust-1", "My drink was watery and the service was rude", now)
	require.NoError(t, err)

	assert.Equal(t, "negative", res.Sentiment)
	assert.Equal(t, "manager_alerted_and_apology_sent", res.ActionTaken)
	assert.NotEmpty(t, res.IncidentID)

	require.Len(t, msg.alerts, 1)
	assert.Contains(t, msg.alerts[0], "Negative feedback from Mei")

	apologies := msg.byKind(loyalty.CampaignLowSentiment)
	require.Len(t, apologies, 1)
	assert.Contains(t, apologies[0].message, "sorry")
	assert.True(t, mem.Sent("cust-1", loyalty.CampaignLowSentiment, "incident-"+res.IncidentID))
}

func TestHandleFeedback_Positive_NoAction(t *testing.T) {
	// GIVEN: Feedback scoring 0.9
	// WHEN: Handled
	// THEN: No alert, no apology, no incident

	runner, mem, msg := newTestRunner(t, &campaign.StaticGenerator{Score: 0.9})
	ctx := context.Background()
	now := time.Now()
	seedCustomer(t, mem, "cust-1", tsPtr(now.AddDate(0, 0, -1)), nil)

	res, err := runner.HandleFeedback(ctx, "cust-1", "Best boba in town!", now)
	require.NoError(t, err)

	assert.Equal(t, "positive", res.Sentiment)
	assert.Equal(t, "none", res.ActionTaken)
	assert.Empty(t, res.IncidentID)
	assert.Empty(t, msg.alerts)
	assert.Empty(t, msg.delivered)
}

func TestHandleFeedback_TwoSubmissions_TwoIncidents(t *testing.T) {
	// GIVEN: Two negative submissions from the same customer
	// WHEN: Each is handled
	// THEN: Each gets its own incident and apology

	runner, mem, msg := newTestRunner(t, &campaign.StaticGenerator{Score: -0.9})
	ctx := context.Background()
	now := time.Now()
	seedCustomer(t, mem, "cust-1", tsPtr(now.AddDate(0, 0, -1)), nil)

	first, err := runner.HandleFeedback(ctx, "cust-1", "Too sweet", now)
	require.NoError(t, err)
	second, err := runner.HandleFeedback(ctx, "cust-1", "Still too sweet", now.Add(time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, first.IncidentID, second.IncidentID)
	assert.Equal(t, "manager_alerted_and_apology_sent", second.ActionTaken)
	assert.Len(t, msg.byKind(loyalty.CampaignLowSentiment), 2)
}

func TestHandleFeedback_EmptyText_Rejected(t *testing.T) {
	// GIVEN: Blank feedback text
	// WHEN: Handled
	// THEN: Validation error before any collaborator call

	runner, mem, _ := newTestRunner(t, failingGenerator{})
	seedCustomer(t, mem, "cust-1", nil, nil)

	_, err := runner.HandleFeedback(context.Background(), "cust-1", "   ", time.Now())
	assert.True(t, loyalty.IsClientError(err))
}

func TestHandleFeedback_SentimentServiceDown_DependencyError(t *testing.T) {
	// GIVEN: A sentiment collaborator that errors
	// WHEN: Feedback is handled
	// THEN: A retryable dependency error naming the collaborator

	runner, mem, _ := newTestRunner(t, failingGenerator{})
	seedCustomer(t, mem, "cust-1", nil, nil)

	_, err := runner.HandleFeedback(context.Background(), "cust-1", "meh", time.Now())
	require.Error(t, err)
	assert.True(t, loyalty.IsRetryable(err))

	var dep *loyalty.DependencyError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, "sentiment", dep.Collaborator)
}

/*
scheduler.go - Automated campaign scheduler

PURPOSE:
  Periodically runs the marketing campaigns for a set of stores. A manual
  run overlapping a scheduled one is safe: the send-history's conditional
  insert guarantees at-most-once dispatch per window, and the overlap shows
  up as skips, not duplicates.

CONFIGURATION:
  - CheckInterval: How often to run (default: 24 hours)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewCampaignScheduler(runner, []loyalty.StoreID{"STORE-001"})
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunCampaigns endpoint (manual runs)
  - campaign/runner.go: Campaign execution
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bobaclub/loyalty-engine/campaign"
	"github.com/bobaclub/loyalty-engine/loyalty"
)

// CampaignScheduler runs campaigns on a fixed interval.
type CampaignScheduler struct {
	Runner        *campaign.Runner
	Stores        []loyalty.StoreID
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCampaignScheduler creates a scheduler for the given stores.
func NewCampaignScheduler(runner *campaign.Runner, stores []loyalty.StoreID) *CampaignScheduler {
	return &CampaignScheduler{
		Runner:        runner,
		Stores:        stores,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (cs *CampaignScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	log.Printf("[Scheduler] Started with check interval: %v", cs.CheckInterval)
}

// Stop stops the scheduler. Safe to call more than once.
func (cs *CampaignScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker == nil {
		return
	}
	cs.ticker.Stop()
	cs.ticker = nil
	close(cs.stop)
	cs.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (cs *CampaignScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.runAll()

	for {
		select {
		case <-cs.ticker.C:
			cs.runAll()
		case <-cs.stop:
			return
		}
	}
}

func (cs *CampaignScheduler) runAll() {
	ctx := context.Background()
	now := time.Now()

	for _, storeID := range cs.Stores {
		results, err := cs.Runner.RunCampaigns(ctx, storeID, now)
		if err != nil {
			log.Printf("[Scheduler] Campaign run for %s failed: %v", storeID, err)
			continue
		}
		for _, res := range results {
			log.Printf("[Scheduler] %s %s: %d targets, %d dispatched, %d skipped, %d failed",
				storeID, res.Kind, res.Targets, res.Dispatched, res.Skipped, res.Failed)
		}
	}
}

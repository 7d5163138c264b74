package usecase

import (
	"context"
	"fmt"
	"sync"

	"marketgo/internal/domain"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"
)

// Aggregator owns one adapter per advertising platform and merges
// campaigns, performance and connection state across them. Adapters are
// always visited in the fixed domain.AllPlatforms order so merged output
// is deterministic regardless of which remote call finishes first.
type Aggregator struct {
	adapters map[domain.Platform]domain.PlatformAdapter
	order    []domain.Platform

	mu        sync.RWMutex
	connected []domain.Platform

	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewAggregator(log *logger.Logger, m *metrics.Metrics, adapters ...domain.PlatformAdapter) *Aggregator {
	byPlatform := make(map[domain.Platform]domain.PlatformAdapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}

	var order []domain.Platform
	for _, p := range domain.AllPlatforms() {
		if _, ok := byPlatform[p]; ok {
			order = append(order, p)
		}
	}

	g := &Aggregator{
		adapters: byPlatform,
		order:    order,
		logger:   log,
		metrics:  m,
	}
	g.RefreshConnections()
	return g
}

// RefreshConnections re-evaluates and caches the connected-platform
// list. Call after any adapter's credentials may have changed.
func (g *Aggregator) RefreshConnections() {
	var connected []domain.Platform
	for _, p := range g.order {
		if g.adapters[p].IsConnected() {
			connected = append(connected, p)
			g.logger.WithPlatform(string(p)).Info("Platform integration active")
		}
	}
	if len(connected) == 0 {
		g.logger.Warn("No advertising platforms connected")
	}

	g.mu.Lock()
	g.connected = connected
	g.mu.Unlock()

	g.metrics.SetPlatformsConnected(len(connected))
}

func (g *Aggregator) connectedPlatforms() []domain.Platform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Platform, len(g.connected))
	copy(out, g.connected)
	return out
}

// ConnectionStatus recomputes the per-platform connection view by
// polling each adapter. Cheap and safe to call frequently.
func (g *Aggregator) ConnectionStatus() domain.ConnectionStatus {
	status := domain.ConnectionStatus{
		Platforms: make(map[domain.Platform]domain.PlatformConnection, len(g.order)),
	}
	for _, p := range g.order {
		adapter := g.adapters[p]
		conn := domain.PlatformConnection{
			Platform:  p,
			Connected: adapter.IsConnected(),
			AccountID: adapter.AccountID(),
		}
		status.Platforms[p] = conn
		if conn.Connected {
			status.ConnectedPlatforms = append(status.ConnectedPlatforms, p)
		}
	}
	status.TotalConnected = len(status.ConnectedPlatforms)
	return status
}

// guard runs one adapter leg and converts a panic into an error. The
// adapters promise not to raise, but one platform's bug must never
// abort the other platform's leg.
func guard(platform domain.Platform, op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s adapter panicked during %s: %v", platform, op, r)
		}
	}()
	fn()
	return nil
}

// ListAllCampaigns merges campaign listings across connected platforms.
// Results are concatenated in platform order; a failed leg is annotated
// and never fails the merged list.
func (g *Aggregator) ListAllCampaigns(ctx context.Context) domain.CampaignList {
	list := domain.CampaignList{
		Campaigns: []domain.CampaignRecord{},
		Platforms: make(map[domain.Platform]domain.PlatformFetchStatus),
	}
	list.Summary.PlatformsConnected = len(g.connectedPlatforms())

	type leg struct {
		campaigns []domain.CampaignRecord
		err       error
		active    bool
	}
	legs := make([]leg, len(g.order))

	var wg sync.WaitGroup
	for i, p := range g.order {
		adapter := g.adapters[p]
		if !adapter.IsConnected() {
			continue
		}
		legs[i].active = true
		wg.Add(1)
		go func(i int, p domain.Platform) {
			defer wg.Done()
			legs[i].err = guard(p, "list_campaigns", func() {
				legs[i].campaigns = adapter.ListCampaigns(ctx)
			})
		}(i, p)
	}
	wg.Wait()

	failed := 0
	for i, p := range g.order {
		if !legs[i].active {
			continue
		}
		if legs[i].err != nil {
			g.logger.WithPlatform(string(p)).WithError(legs[i].err).Error("Error fetching campaigns")
			list.Platforms[p] = domain.PlatformFetchStatus{
				Status: domain.FetchStatusError,
				Error:  legs[i].err.Error(),
			}
			failed++
			continue
		}
		list.Campaigns = append(list.Campaigns, legs[i].campaigns...)
		list.Platforms[p] = domain.PlatformFetchStatus{
			CampaignCount: len(legs[i].campaigns),
			Status:        domain.FetchStatusConnected,
		}
		g.metrics.RecordAggregationRecords(string(p), "campaigns", len(legs[i].campaigns))
	}

	list.Summary.TotalCampaigns = len(list.Campaigns)
	status := domain.FetchStatusConnected
	if failed > 0 {
		status = "partial"
	}
	g.metrics.RecordAggregation("campaigns", status)
	return list
}

// GetAllPerformance merges performance data across connected platforms
// for an inclusive window of days ending today. Raw totals are summed;
// the cross-platform average CTR and CPC are the unweighted mean over
// platforms that reported a nonzero value, while the weighted variants
// are recomputed from the summed totals.
func (g *Aggregator) GetAllPerformance(ctx context.Context, days int) domain.AggregatePerformance {
	agg := domain.AggregatePerformance{
		Platforms:     make(map[domain.Platform]domain.PerformanceReport),
		Errors:        make(map[domain.Platform]string),
		DateRangeDays: days,
	}

	type leg struct {
		report domain.PerformanceReport
		err    error
		active bool
	}
	legs := make([]leg, len(g.order))

	var wg sync.WaitGroup
	for i, p := range g.order {
		adapter := g.adapters[p]
		if !adapter.IsConnected() {
			continue
		}
		legs[i].active = true
		wg.Add(1)
		go func(i int, p domain.Platform) {
			defer wg.Done()
			legs[i].err = guard(p, "get_performance", func() {
				legs[i].report = adapter.GetPerformance(ctx, "", days)
			})
		}(i, p)
	}
	wg.Wait()

	var platformCTRs, platformCPCs []float64
	for i, p := range g.order {
		if !legs[i].active {
			continue
		}
		if legs[i].err != nil {
			g.logger.WithPlatform(string(p)).WithError(legs[i].err).Error("Error fetching performance data")
			agg.Errors[p] = legs[i].err.Error()
			continue
		}
		report := legs[i].report
		// A nil campaign map marks a failed fetch; an empty map is a
		// platform that genuinely had no data.
		if report.Campaigns == nil {
			agg.Errors[p] = "performance fetch failed"
			continue
		}

		agg.Platforms[p] = report
		agg.Summary.TotalImpressions += report.Summary.Impressions
		agg.Summary.TotalClicks += report.Summary.Clicks
		agg.Summary.TotalSpend += report.Summary.Cost
		agg.Summary.TotalConversions += report.Summary.Conversions
		if report.Summary.CTR > 0 {
			platformCTRs = append(platformCTRs, report.Summary.CTR)
		}
		if report.Summary.CPC > 0 {
			platformCPCs = append(platformCPCs, report.Summary.CPC)
		}
		agg.Summary.PlatformsCount++
	}

	if len(platformCTRs) > 0 {
		var sum float64
		for _, v := range platformCTRs {
			sum += v
		}
		agg.Summary.AverageCTR = sum / float64(len(platformCTRs))
	}
	if len(platformCPCs) > 0 {
		var sum float64
		for _, v := range platformCPCs {
			sum += v
		}
		agg.Summary.AverageCPC = sum / float64(len(platformCPCs))
	}
	if agg.Summary.TotalImpressions > 0 {
		agg.Summary.WeightedCTR = float64(agg.Summary.TotalClicks) / float64(agg.Summary.TotalImpressions) * 100
	}
	if agg.Summary.TotalClicks > 0 {
		agg.Summary.WeightedCPC = agg.Summary.TotalSpend / float64(agg.Summary.TotalClicks)
	}

	status := domain.FetchStatusConnected
	if len(agg.Errors) > 0 {
		status = "partial"
	}
	g.metrics.RecordAggregation("performance", status)
	return agg
}

// adapterFor resolves the target adapter for a routed mutation, logging
// a warning for unknown or disconnected platforms. An unsupported route
// is a normal outcome, not an error.
func (g *Aggregator) adapterFor(platform domain.Platform, op string) (domain.PlatformAdapter, bool) {
	adapter, ok := g.adapters[platform]
	if !ok || !adapter.IsConnected() {
		g.logger.WithPlatform(string(platform)).WithField("operation", op).Warn("Platform not connected or not supported")
		return nil, false
	}
	return adapter, true
}

// CreateCampaign routes a campaign creation to the named platform.
// Returns the new campaign id, or empty string when the platform is
// unknown, disconnected, or the creation failed.
func (g *Aggregator) CreateCampaign(ctx context.Context, platform domain.Platform, spec domain.CampaignSpec) string {
	adapter, ok := g.adapterFor(platform, "create_campaign")
	if !ok {
		return ""
	}
	return adapter.CreateCampaign(ctx, spec)
}

// UpdateBudget routes a budget change. True means the platform accepted
// the request, not that it has been applied.
func (g *Aggregator) UpdateBudget(ctx context.Context, platform domain.Platform, campaignID string, budget float64) bool {
	adapter, ok := g.adapterFor(platform, "update_budget")
	if !ok {
		return false
	}
	return adapter.UpdateBudget(ctx, campaignID, budget)
}

// PauseCampaign routes a pause request. Platforms without pause support
// return false.
func (g *Aggregator) PauseCampaign(ctx context.Context, platform domain.Platform, campaignID string) bool {
	adapter, ok := g.adapterFor(platform, "pause_campaign")
	if !ok {
		return false
	}
	return adapter.PauseCampaign(ctx, campaignID)
}

// ResumeCampaign routes a resume request.
func (g *Aggregator) ResumeCampaign(ctx context.Context, platform domain.Platform, campaignID string) bool {
	adapter, ok := g.adapterFor(platform, "resume_campaign")
	if !ok {
		return false
	}
	return adapter.ResumeCampaign(ctx, campaignID)
}

// AccountInfo returns account metadata for every connected platform.
func (g *Aggregator) AccountInfo(ctx context.Context) map[domain.Platform]domain.AccountInfo {
	accounts := make(map[domain.Platform]domain.AccountInfo)
	for _, p := range g.order {
		adapter := g.adapters[p]
		if !adapter.IsConnected() {
			continue
		}
		if info, ok := adapter.AccountInfo(ctx); ok {
			accounts[p] = info
		}
	}
	return accounts
}

package usecase

import (
	"context"
	"testing"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared across the package; promauto registers against the default
// registry and must only run once per test binary.
var (
	testMetrics = metrics.New()
	testLogger  = logger.New("error")
)

type fakeAdapter struct {
	platform  domain.Platform
	connected bool
	accountID string

	campaigns []domain.CampaignRecord
	report    domain.PerformanceReport
	delay     time.Duration
	panicMsg  string

	createdID string
	budgetOK  bool
	pauseOK   bool
	resumeOK  bool
	info      domain.AccountInfo
	infoOK    bool
}

func (f *fakeAdapter) Platform() domain.Platform { return f.platform }
func (f *fakeAdapter) IsConnected() bool         { return f.connected }
func (f *fakeAdapter) AccountID() string         { return f.accountID }

func (f *fakeAdapter) ListCampaigns(ctx context.Context) []domain.CampaignRecord {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.campaigns
}

func (f *fakeAdapter) GetPerformance(ctx context.Context, campaignID string, days int) domain.PerformanceReport {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.report
}

func (f *fakeAdapter) CreateCampaign(ctx context.Context, spec domain.CampaignSpec) string {
	return f.createdID
}

func (f *fakeAdapter) UpdateBudget(ctx context.Context, campaignID string, budget float64) bool {
	return f.budgetOK
}

func (f *fakeAdapter) PauseCampaign(ctx context.Context, campaignID string) bool {
	return f.pauseOK
}

func (f *fakeAdapter) ResumeCampaign(ctx context.Context, campaignID string) bool {
	return f.resumeOK
}

func (f *fakeAdapter) AccountInfo(ctx context.Context) (domain.AccountInfo, bool) {
	return f.info, f.infoOK
}

func performanceReport(platform domain.Platform, impressions, clicks int64, cost, conversions float64) domain.PerformanceReport {
	report := domain.PerformanceReport{
		Campaigns: map[string]domain.CampaignPerformance{
			"c1": {Impressions: impressions, Clicks: clicks, Cost: cost, Conversions: conversions},
		},
		Platform: platform,
	}
	report.Summary = domain.SummarizeCampaigns(report.Campaigns)
	return report
}

func TestListAllCampaignsMergesInPlatformOrder(t *testing.T) {
	// Google's leg is slowed down so Meta finishes first; the merged
	// order must not depend on completion order.
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		delay:     30 * time.Millisecond,
		campaigns: []domain.CampaignRecord{
			{ID: "g1", Name: "Brand", Platform: domain.PlatformGoogleAds},
			{ID: "g2", Name: "Search", Platform: domain.PlatformGoogleAds},
		},
	}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		campaigns: []domain.CampaignRecord{
			{ID: "m1", Name: "Retargeting", Platform: domain.PlatformMetaAds},
		},
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	list := g.ListAllCampaigns(context.Background())

	require.Len(t, list.Campaigns, 3)
	assert.Equal(t, "g1", list.Campaigns[0].ID)
	assert.Equal(t, "g2", list.Campaigns[1].ID)
	assert.Equal(t, "m1", list.Campaigns[2].ID)
	assert.Equal(t, 3, list.Summary.TotalCampaigns)
	assert.Equal(t, 2, list.Summary.PlatformsConnected)
	assert.Equal(t, domain.FetchStatusConnected, list.Platforms[domain.PlatformGoogleAds].Status)
	assert.Equal(t, 2, list.Platforms[domain.PlatformGoogleAds].CampaignCount)
}

func TestListAllCampaignsSurvivesPanickingAdapter(t *testing.T) {
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		panicMsg:  "boom",
	}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		campaigns: []domain.CampaignRecord{{ID: "m1", Name: "Prospecting"}},
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	list := g.ListAllCampaigns(context.Background())

	require.Len(t, list.Campaigns, 1)
	assert.Equal(t, "m1", list.Campaigns[0].ID)
	assert.Equal(t, domain.FetchStatusError, list.Platforms[domain.PlatformGoogleAds].Status)
	assert.Contains(t, list.Platforms[domain.PlatformGoogleAds].Error, "boom")
	assert.Equal(t, domain.FetchStatusConnected, list.Platforms[domain.PlatformMetaAds].Status)
}

func TestListAllCampaignsRecordsPartialStatus(t *testing.T) {
	partial := testMetrics.AggregationsTotal.WithLabelValues("campaigns", "partial")
	healthy := testMetrics.AggregationsTotal.WithLabelValues("campaigns", domain.FetchStatusConnected)
	partialBefore := testutil.ToFloat64(partial)
	healthyBefore := testutil.ToFloat64(healthy)

	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		panicMsg:  "boom",
	}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		campaigns: []domain.CampaignRecord{{ID: "m1", Name: "Prospecting"}},
	}
	g := NewAggregator(testLogger, testMetrics, google, meta)

	g.ListAllCampaigns(context.Background())
	assert.Equal(t, partialBefore+1, testutil.ToFloat64(partial))
	assert.Equal(t, healthyBefore, testutil.ToFloat64(healthy))

	google.panicMsg = ""
	g.ListAllCampaigns(context.Background())
	assert.Equal(t, partialBefore+1, testutil.ToFloat64(partial))
	assert.Equal(t, healthyBefore+1, testutil.ToFloat64(healthy))
}

func TestListAllCampaignsSkipsDisconnected(t *testing.T) {
	google := &fakeAdapter{platform: domain.PlatformGoogleAds}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		campaigns: []domain.CampaignRecord{{ID: "m1"}},
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	list := g.ListAllCampaigns(context.Background())

	assert.Len(t, list.Campaigns, 1)
	_, annotated := list.Platforms[domain.PlatformGoogleAds]
	assert.False(t, annotated)
	assert.Equal(t, 1, list.Summary.PlatformsConnected)
}

func TestGetAllPerformanceTotalsAndAverages(t *testing.T) {
	// Google: CTR 2.5%, CPC 2.00. Meta reported impressions but no
	// clicks, so its zero CTR and CPC stay out of the unweighted mean.
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		report:    performanceReport(domain.PlatformGoogleAds, 10000, 250, 500, 25),
	}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		report:    performanceReport(domain.PlatformMetaAds, 5000, 0, 0, 0),
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	agg := g.GetAllPerformance(context.Background(), 30)

	assert.Equal(t, int64(15000), agg.Summary.TotalImpressions)
	assert.Equal(t, int64(250), agg.Summary.TotalClicks)
	assert.InDelta(t, 500.0, agg.Summary.TotalSpend, 0.0001)
	assert.Equal(t, 2, agg.Summary.PlatformsCount)
	assert.InDelta(t, 2.5, agg.Summary.AverageCTR, 0.0001)
	assert.InDelta(t, 2.0, agg.Summary.AverageCPC, 0.0001)
	assert.InDelta(t, 250.0/15000*100, agg.Summary.WeightedCTR, 0.0001)
	assert.InDelta(t, 2.0, agg.Summary.WeightedCPC, 0.0001)
	assert.Equal(t, 30, agg.DateRangeDays)
	assert.Empty(t, agg.Errors)
}

func TestGetAllPerformancePartialFailure(t *testing.T) {
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		report:    performanceReport(domain.PlatformGoogleAds, 1000, 40, 44, 4),
	}
	// A nil campaign map is how adapters mark a failed remote fetch.
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		report:    domain.PerformanceReport{Platform: domain.PlatformMetaAds},
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	agg := g.GetAllPerformance(context.Background(), 7)

	require.Contains(t, agg.Platforms, domain.PlatformGoogleAds)
	assert.NotContains(t, agg.Platforms, domain.PlatformMetaAds)
	assert.Contains(t, agg.Errors, domain.PlatformMetaAds)
	assert.Equal(t, 1, agg.Summary.PlatformsCount)
	assert.Equal(t, int64(1000), agg.Summary.TotalImpressions)
}

func TestGetAllPerformancePanickingAdapter(t *testing.T) {
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		report:    performanceReport(domain.PlatformGoogleAds, 1000, 40, 44, 4),
	}
	meta := &fakeAdapter{
		platform:  domain.PlatformMetaAds,
		connected: true,
		panicMsg:  "token expired",
	}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	agg := g.GetAllPerformance(context.Background(), 7)

	assert.Contains(t, agg.Errors[domain.PlatformMetaAds], "token expired")
	assert.Equal(t, int64(1000), agg.Summary.TotalImpressions)
}

func TestConnectionStatusIsIdempotent(t *testing.T) {
	google := &fakeAdapter{platform: domain.PlatformGoogleAds, connected: true, accountID: "123"}
	meta := &fakeAdapter{platform: domain.PlatformMetaAds}

	g := NewAggregator(testLogger, testMetrics, google, meta)

	first := g.ConnectionStatus()
	second := g.ConnectionStatus()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.TotalConnected)
	assert.Equal(t, []domain.Platform{domain.PlatformGoogleAds}, first.ConnectedPlatforms)
	assert.True(t, first.Platforms[domain.PlatformGoogleAds].Connected)
	assert.Equal(t, "123", first.Platforms[domain.PlatformGoogleAds].AccountID)
	assert.False(t, first.Platforms[domain.PlatformMetaAds].Connected)
}

func TestMutationRouting(t *testing.T) {
	google := &fakeAdapter{platform: domain.PlatformGoogleAds, connected: true, createdID: "555", budgetOK: true}
	meta := &fakeAdapter{platform: domain.PlatformMetaAds, connected: true, pauseOK: true, resumeOK: true}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	ctx := context.Background()

	assert.Equal(t, "555", g.CreateCampaign(ctx, domain.PlatformGoogleAds, domain.CampaignSpec{Name: "New"}))
	assert.True(t, g.UpdateBudget(ctx, domain.PlatformGoogleAds, "555", 50))
	assert.True(t, g.PauseCampaign(ctx, domain.PlatformMetaAds, "m1"))
	assert.True(t, g.ResumeCampaign(ctx, domain.PlatformMetaAds, "m1"))

	// Google has no pause support; the adapter answers false.
	assert.False(t, g.PauseCampaign(ctx, domain.PlatformGoogleAds, "555"))

	// Unknown platforms fail quietly.
	assert.Equal(t, "", g.CreateCampaign(ctx, "tiktok_ads", domain.CampaignSpec{Name: "New"}))
	assert.False(t, g.UpdateBudget(ctx, "tiktok_ads", "1", 50))
}

func TestMutationRoutingDisconnected(t *testing.T) {
	google := &fakeAdapter{platform: domain.PlatformGoogleAds, createdID: "should-not-happen"}
	meta := &fakeAdapter{platform: domain.PlatformMetaAds, connected: true}

	g := NewAggregator(testLogger, testMetrics, google, meta)

	assert.Equal(t, "", g.CreateCampaign(context.Background(), domain.PlatformGoogleAds, domain.CampaignSpec{Name: "X"}))
}

func TestAccountInfoOnlyConnected(t *testing.T) {
	google := &fakeAdapter{
		platform:  domain.PlatformGoogleAds,
		connected: true,
		info:      domain.AccountInfo{ID: "123", Name: "Acme", Platform: domain.PlatformGoogleAds},
		infoOK:    true,
	}
	meta := &fakeAdapter{platform: domain.PlatformMetaAds}

	g := NewAggregator(testLogger, testMetrics, google, meta)
	accounts := g.AccountInfo(context.Background())

	require.Len(t, accounts, 1)
	assert.Equal(t, "Acme", accounts[domain.PlatformGoogleAds].Name)
}

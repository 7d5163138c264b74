package usecase

import (
	"testing"

	"marketgo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insightsAggregator() *Aggregator {
	google := &fakeAdapter{platform: domain.PlatformGoogleAds, connected: true}
	meta := &fakeAdapter{platform: domain.PlatformMetaAds, connected: true}
	return NewAggregator(testLogger, testMetrics, google, meta)
}

func aggWith(reports map[domain.Platform]domain.PerformanceReport) domain.AggregatePerformance {
	return domain.AggregatePerformance{Platforms: reports}
}

func TestCrossPlatformInsightsRecommendations(t *testing.T) {
	g := insightsAggregator()

	agg := aggWith(map[domain.Platform]domain.PerformanceReport{
		domain.PlatformGoogleAds: {Summary: domain.PerformanceSummary{
			Impressions: 10000, Clicks: 250, Cost: 275, CTR: 2.5, CPC: 1.10,
		}},
		domain.PlatformMetaAds: {Summary: domain.PerformanceSummary{
			Impressions: 8000, Clicks: 248, Cost: 235.6, CTR: 3.1, CPC: 0.95,
		}},
	})

	insight := g.GenerateCrossPlatformInsights(agg)

	assert.Equal(t, domain.PlatformMetaAds, insight.BestCTRPlatform)
	assert.Equal(t, domain.PlatformMetaAds, insight.LowestCPCPlatform)
	require.Len(t, insight.Recommendations, 2)
	assert.Contains(t, insight.Recommendations[0], "Meta Ads")
	assert.Contains(t, insight.Recommendations[0], "highest CTR")
	assert.Contains(t, insight.Recommendations[1], "Meta Ads")
	assert.Contains(t, insight.Recommendations[1], "cost-efficient")

	require.Contains(t, insight.PlatformComparison, domain.PlatformGoogleAds)
	assert.InDelta(t, 2.5, insight.PlatformComparison[domain.PlatformGoogleAds].CTR, 0.0001)
	assert.InDelta(t, 275.0, insight.PlatformComparison[domain.PlatformGoogleAds].TotalSpend, 0.0001)
}

func TestCrossPlatformInsightsZeroCPCNeverWins(t *testing.T) {
	g := insightsAggregator()

	// Google reported no clicks, so its CPC is zero. Zero is no data,
	// not free traffic, and must lose to any real CPC.
	agg := aggWith(map[domain.Platform]domain.PerformanceReport{
		domain.PlatformGoogleAds: {Summary: domain.PerformanceSummary{
			Impressions: 500, CTR: 0, CPC: 0,
		}},
		domain.PlatformMetaAds: {Summary: domain.PerformanceSummary{
			Impressions: 8000, Clicks: 100, Cost: 50, CTR: 1.25, CPC: 0.5,
		}},
	})

	insight := g.GenerateCrossPlatformInsights(agg)

	assert.Equal(t, domain.PlatformMetaAds, insight.LowestCPCPlatform)
	assert.Equal(t, domain.PlatformMetaAds, insight.BestCTRPlatform)
}

func TestCrossPlatformInsightsSinglePlatform(t *testing.T) {
	g := insightsAggregator()

	agg := aggWith(map[domain.Platform]domain.PerformanceReport{
		domain.PlatformGoogleAds: {Summary: domain.PerformanceSummary{
			Impressions: 10000, Clicks: 250, Cost: 275, CTR: 2.5, CPC: 1.10,
		}},
	})

	insight := g.GenerateCrossPlatformInsights(agg)

	assert.Empty(t, insight.Recommendations)
	assert.Empty(t, insight.BestCTRPlatform)
	assert.Empty(t, insight.LowestCPCPlatform)
	assert.Len(t, insight.PlatformComparison, 1)
}

func TestCrossPlatformInsightsNoData(t *testing.T) {
	g := insightsAggregator()

	insight := g.GenerateCrossPlatformInsights(aggWith(nil))

	assert.Empty(t, insight.Recommendations)
	assert.Empty(t, insight.PlatformComparison)
}

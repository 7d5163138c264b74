package usecase

import (
	"fmt"
	"math"

	"marketgo/internal/domain"
)

// GenerateCrossPlatformInsights compares platform summaries off an
// already-aggregated performance result and derives textual budget
// recommendations. With fewer than two reporting platforms there is
// nothing to compare and the recommendation list stays empty.
func (g *Aggregator) GenerateCrossPlatformInsights(agg domain.AggregatePerformance) domain.CrossPlatformInsight {
	insight := domain.CrossPlatformInsight{
		PlatformComparison: make(map[domain.Platform]domain.PlatformComparison, len(agg.Platforms)),
		Recommendations:    []string{},
	}

	for p, report := range agg.Platforms {
		insight.PlatformComparison[p] = domain.PlatformComparison{
			TotalSpend:       report.Summary.Cost,
			TotalClicks:      report.Summary.Clicks,
			TotalImpressions: report.Summary.Impressions,
			CTR:              report.Summary.CTR,
			CPC:              report.Summary.CPC,
			Conversions:      report.Summary.Conversions,
		}
	}

	if len(insight.PlatformComparison) < 2 {
		return insight
	}

	// Fixed platform order makes tie-breaks deterministic.
	var bestCTR, lowestCPC domain.Platform
	bestCTRValue := math.Inf(-1)
	lowestCPCValue := math.Inf(1)
	for _, p := range g.order {
		comp, ok := insight.PlatformComparison[p]
		if !ok {
			continue
		}
		if comp.CTR > bestCTRValue {
			bestCTR = p
			bestCTRValue = comp.CTR
		}
		// A zero CPC means no spend or no clicks, which is not cheap
		// traffic, so it never wins the cost-efficiency comparison.
		cpc := comp.CPC
		if cpc == 0 {
			cpc = math.Inf(1)
		}
		if cpc < lowestCPCValue {
			lowestCPC = p
			lowestCPCValue = cpc
		}
	}
	if lowestCPC == "" {
		lowestCPC = g.order[0]
	}

	insight.BestCTRPlatform = bestCTR
	insight.LowestCPCPlatform = lowestCPC
	insight.Recommendations = append(insight.Recommendations,
		fmt.Sprintf("Consider increasing budget allocation to %s which shows the highest CTR performance", bestCTR.DisplayName()),
		fmt.Sprintf("%s shows the most cost-efficient clicks. Consider optimizing other platforms to match this performance", lowestCPC.DisplayName()),
	)

	g.metrics.RecordInsight("best_ctr")
	g.metrics.RecordInsight("lowest_cpc")
	return insight
}

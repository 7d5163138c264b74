package domain

// PlatformComparison is one row of the cross-platform comparison table,
// built from the canonical per-platform summary shape.
type PlatformComparison struct {
	TotalSpend       float64 `json:"total_spend"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalImpressions int64   `json:"total_impressions"`
	CTR              float64 `json:"ctr"`
	CPC              float64 `json:"cpc"`
	Conversions      float64 `json:"conversions"`
}

// CrossPlatformInsight holds comparative recommendations derived from an
// AggregatePerformance. Recommendations are only produced when at least
// two platforms reported data; the empty case is not an error.
type CrossPlatformInsight struct {
	PlatformComparison map[Platform]PlatformComparison `json:"platform_comparison"`
	Recommendations    []string                        `json:"recommendations"`
	BestCTRPlatform    Platform                        `json:"best_ctr_platform,omitempty"`
	LowestCPCPlatform  Platform                        `json:"lowest_cpc_platform,omitempty"`
}

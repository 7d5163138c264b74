package domain

// CampaignPerformance is one campaign's metrics over the requested date
// window, already normalized to major currency units and percentage CTR.
type CampaignPerformance struct {
	Name           string  `json:"name"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Cost           float64 `json:"cost"`
	Conversions    float64 `json:"conversions"`
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	ConversionRate float64 `json:"conversion_rate"`
}

// PerformanceSummary aggregates raw totals for one platform and carries
// the derived metrics recomputed from those totals. Upstream data may
// report clicks exceeding impressions; that passes through untouched.
type PerformanceSummary struct {
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Cost           float64 `json:"cost"`
	Conversions    float64 `json:"conversions"`
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Summarize recomputes the derived metrics from the raw totals. Zero
// denominators yield zero, never a division error.
func (s *PerformanceSummary) Summarize() {
	s.CTR = 0
	s.CPC = 0
	s.ConversionRate = 0
	if s.Impressions > 0 {
		s.CTR = float64(s.Clicks) / float64(s.Impressions) * 100
	}
	if s.Clicks > 0 {
		s.CPC = s.Cost / float64(s.Clicks)
		s.ConversionRate = s.Conversions / float64(s.Clicks) * 100
	}
}

// SummarizeCampaigns sums per-campaign rows into a platform summary and
// recomputes the derived metrics from the summed totals.
func SummarizeCampaigns(rows map[string]CampaignPerformance) PerformanceSummary {
	var s PerformanceSummary
	for _, row := range rows {
		s.Impressions += row.Impressions
		s.Clicks += row.Clicks
		s.Cost += row.Cost
		s.Conversions += row.Conversions
	}
	s.Summarize()
	return s
}

// DateRange is an inclusive calendar-date window.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// PerformanceReport is one platform's performance over a date window:
// per-campaign rows keyed by campaign id plus the computed summary.
type PerformanceReport struct {
	Campaigns map[string]CampaignPerformance `json:"campaigns"`
	Summary   PerformanceSummary             `json:"summary"`
	DateRange DateRange                      `json:"date_range"`
	Platform  Platform                       `json:"platform"`
}

// AggregateSummary holds the cross-platform totals. AverageCTR and
// AverageCPC are the unweighted mean of per-platform values over the
// platforms that reported a nonzero value; WeightedCTR and WeightedCPC
// are recomputed from the summed totals and do not share that quirk.
type AggregateSummary struct {
	TotalImpressions int64   `json:"total_impressions"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalSpend       float64 `json:"total_spend"`
	TotalConversions float64 `json:"total_conversions"`
	AverageCTR       float64 `json:"average_ctr"`
	AverageCPC       float64 `json:"average_cpc"`
	WeightedCTR      float64 `json:"weighted_ctr"`
	WeightedCPC      float64 `json:"weighted_cpc"`
	PlatformsCount   int     `json:"platforms_count"`
}

// AggregatePerformance is the merged view across all connected platforms
// for one request. It is created fresh on every call and never cached.
type AggregatePerformance struct {
	Platforms     map[Platform]PerformanceReport `json:"platforms"`
	Errors        map[Platform]string            `json:"errors,omitempty"`
	Summary       AggregateSummary               `json:"summary"`
	DateRangeDays int                            `json:"date_range_days"`
}

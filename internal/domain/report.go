package domain

import (
	"encoding/json"
	"time"
)

// Campaign is a client-submitted marketing campaign persisted in the
// record store. Budget is in major currency units, Duration in days.
type Campaign struct {
	ID             int64     `json:"id"`
	CampaignName   string    `json:"campaign_name"`
	TargetAudience string    `json:"target_audience"`
	Budget         float64   `json:"budget"`
	Duration       int       `json:"duration"`
	Objectives     string    `json:"objectives"`
	Channels       string    `json:"channels,omitempty"`
	CurrentMetrics string    `json:"current_metrics,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Report is a generated marketing report persisted alongside its campaign.
// ReportData is the structured JSON payload returned by the generator.
type Report struct {
	ID          int64           `json:"id"`
	CampaignID  int64           `json:"campaign_id"`
	ReportData  json.RawMessage `json:"report_data"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ReportRequest carries the validated campaign parameters used to build
// a report prompt.
type ReportRequest struct {
	CampaignName   string  `json:"campaign_name"`
	TargetAudience string  `json:"target_audience"`
	Budget         float64 `json:"budget"`
	Duration       int     `json:"duration"`
	Objectives     string  `json:"objectives"`
	Channels       string  `json:"channels,omitempty"`
	CurrentMetrics string  `json:"current_metrics,omitempty"`
}

// AudienceContext supplies real advertising data to audience analysis.
// Empty ConnectedPlatforms means no live platform data was available.
type AudienceContext struct {
	ConnectedPlatforms []Platform       `json:"connected_platforms"`
	Performance        AggregateSummary `json:"performance"`
}

// AudienceFilterResult is the outcome of noise reduction over raw
// audience data: suspected bots, irrelevant and low-engagement users
// removed, with the resulting quality score.
type AudienceFilterResult struct {
	OriginalSize    int      `json:"original_size"`
	FilteredSize    int      `json:"filtered_size"`
	QualityScore    float64  `json:"quality_score"`
	RemovedSegments []string `json:"removed_segments"`
	EngagementLift  string   `json:"estimated_engagement_lift"`
}

// BudgetSplit is one tier of a precision-targeting budget allocation.
type BudgetSplit struct {
	Percentage int     `json:"percentage"`
	Amount     float64 `json:"amount"`
	Rationale  string  `json:"rationale"`
}

// TargetingRecommendation is the budget allocation derived from audience
// insights: a tiered split across high-value, growth and testing buckets.
type TargetingRecommendation struct {
	HighValueSegment BudgetSplit `json:"high_value_segment"`
	GrowthSegment    BudgetSplit `json:"growth_segment"`
	TestingBudget    BudgetSplit `json:"testing_budget"`
}

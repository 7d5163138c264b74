package domain

import (
	"context"
	"encoding/json"
)

// PlatformAdapter wraps one external advertising platform behind a
// uniform contract. Adapter operations never propagate remote errors:
// network and auth failures are caught at the adapter boundary, logged,
// and converted into the documented empty/zero/false result so that one
// platform's outage cannot abort another platform's leg.
type PlatformAdapter interface {
	// Platform returns the adapter's platform tag.
	Platform() Platform

	// IsConnected is a cheap, side-effect-free predicate: true iff a live
	// client handle and an account identifier are both present.
	IsConnected() bool

	// AccountID returns the configured account identifier, empty when
	// disconnected.
	AccountID() string

	// ListCampaigns returns active and paused campaigns sorted by name.
	// Empty on any remote error.
	ListCampaigns(ctx context.Context) []CampaignRecord

	// GetPerformance fetches metrics for an inclusive window of days
	// ending today, optionally scoped to one campaign. Minor currency
	// units are converted to major units before the report is returned.
	// A remote error yields a report with a nil Campaigns map; an empty
	// non-nil map means the window genuinely had no data.
	GetPerformance(ctx context.Context, campaignID string, days int) PerformanceReport

	// CreateCampaign creates a new campaign in a paused state. Returns
	// the new id, or empty string on any failure.
	CreateCampaign(ctx context.Context, spec CampaignSpec) string

	// UpdateBudget requests a budget change. True means accepted, not
	// necessarily applied.
	UpdateBudget(ctx context.Context, campaignID string, budget float64) bool

	// PauseCampaign and ResumeCampaign are best-effort mutations.
	// Platforms without support return false rather than erroring.
	PauseCampaign(ctx context.Context, campaignID string) bool
	ResumeCampaign(ctx context.Context, campaignID string) bool

	// AccountInfo returns normalized account metadata. ok is false when
	// disconnected or on remote error.
	AccountInfo(ctx context.Context) (AccountInfo, bool)
}

// CampaignStore persists client campaigns and their generated reports.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *Campaign) error
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*Campaign, error)
	CreateReport(ctx context.Context, report *Report) error
	ListReports(ctx context.Context) ([]Report, error)
	ListReportsByCampaign(ctx context.Context, campaignID int64) ([]Report, error)
}

// ReportGenerator is the opaque generative-text collaborator: structured
// input in, structured JSON out, fallible.
type ReportGenerator interface {
	GenerateMarketingReport(ctx context.Context, req ReportRequest) (json.RawMessage, error)
	AnalyzeAudience(ctx context.Context, targetAudience string, campaign *Campaign, ads *AudienceContext) (json.RawMessage, error)
}

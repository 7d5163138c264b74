package domain

// CampaignRecord is one advertising campaign as returned by an adapter.
// IDs are adapter-scoped and may collide across platforms; the Platform
// tag disambiguates. Status keeps each platform's native vocabulary.
type CampaignRecord struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	Platform       Platform `json:"platform"`
	ChannelType    string   `json:"channel_type,omitempty"`
	Objective      string   `json:"objective,omitempty"`
	DailyBudget    float64  `json:"daily_budget,omitempty"`
	LifetimeBudget float64  `json:"lifetime_budget,omitempty"`
	StartDate      string   `json:"start_date,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	CreatedTime    string   `json:"created_time,omitempty"`
}

// CampaignSpec describes a campaign to create. New campaigns always start
// paused regardless of the requested budget.
type CampaignSpec struct {
	Name           string  `json:"name"`
	Objective      string  `json:"objective,omitempty"`
	DailyBudget    float64 `json:"daily_budget,omitempty"`
	LifetimeBudget float64 `json:"lifetime_budget,omitempty"`
}

// AccountInfo is normalized account metadata for one platform.
type AccountInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Currency     string   `json:"currency"`
	Timezone     string   `json:"timezone"`
	Status       string   `json:"status"`
	BusinessName string   `json:"business_name,omitempty"`
	Platform     Platform `json:"platform"`
}

// PlatformFetchStatus annotates one platform's leg of a merged call.
type PlatformFetchStatus struct {
	CampaignCount int    `json:"campaign_count"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

const (
	FetchStatusConnected = "connected"
	FetchStatusError     = "error"
)

// CampaignList is the merged campaign listing across connected platforms.
// Campaigns are concatenated in platform iteration order; a failed leg is
// annotated per platform and never fails the whole list.
type CampaignList struct {
	Campaigns []CampaignRecord                 `json:"campaigns"`
	Platforms map[Platform]PlatformFetchStatus `json:"platforms"`
	Summary   CampaignListSummary              `json:"summary"`
}

type CampaignListSummary struct {
	TotalCampaigns     int `json:"total_campaigns"`
	PlatformsConnected int `json:"platforms_connected"`
}

package domain

// Platform identifies one advertising platform integration.
type Platform string

const (
	PlatformGoogleAds Platform = "google_ads"
	PlatformMetaAds   Platform = "meta_ads"
)

// AllPlatforms returns every known platform in fixed iteration order.
// Merged results are always assembled in this order.
func AllPlatforms() []Platform {
	return []Platform{PlatformGoogleAds, PlatformMetaAds}
}

// ParsePlatform resolves a platform tag from its string form.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformGoogleAds:
		return PlatformGoogleAds, true
	case PlatformMetaAds:
		return PlatformMetaAds, true
	default:
		return "", false
	}
}

// DisplayName returns the human readable platform name used in
// recommendation text (e.g. "Google Ads").
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGoogleAds:
		return "Google Ads"
	case PlatformMetaAds:
		return "Meta Ads"
	default:
		return string(p)
	}
}

// PlatformConnection reports the live/dead state of one adapter. It is
// computed on demand from adapter client state and never persisted.
type PlatformConnection struct {
	Platform  Platform `json:"platform"`
	Connected bool     `json:"connected"`
	AccountID string   `json:"account_id,omitempty"`
}

// ConnectionStatus is the unified connection view across all adapters.
type ConnectionStatus struct {
	Platforms          map[Platform]PlatformConnection `json:"platforms"`
	ConnectedPlatforms []Platform                      `json:"connected_platforms"`
	TotalConnected     int                             `json:"total_connected"`
}

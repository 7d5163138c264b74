package infrastructure

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/config"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"

	"golang.org/x/time/rate"
)

// MetaAdsAdapter implements domain.PlatformAdapter against the Meta
// Graph API. Spend, CPC and CTR already arrive in major units and
// percentages; budgets are the exception and travel in cents on both
// the read and write paths, converted at this boundary.
type MetaAdsAdapter struct {
	mu          sync.RWMutex
	creds       config.MetaAdsCredentials
	client      *http.Client
	accessToken string
	adAccountID string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	now         func() time.Time
}

// NewMetaAdsAdapter builds the adapter and attempts to connect. Missing
// credentials leave it disconnected without error.
func NewMetaAdsAdapter(creds config.MetaAdsCredentials, timeout time.Duration, ratePerSecond int, log *logger.Logger, m *metrics.Metrics) *MetaAdsAdapter {
	a := &MetaAdsAdapter{
		creds: creds,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  log,
		metrics: m,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		now:     time.Now,
	}
	a.initialize()
	return a
}

func (a *MetaAdsAdapter) initialize() {
	a.mu.RLock()
	creds := a.creds
	a.mu.RUnlock()

	if !creds.Complete() {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).Warn("Missing Meta Ads credentials, adapter disconnected")
		return
	}

	accountID := creds.AdAccountID
	if !strings.HasPrefix(accountID, "act_") {
		accountID = "act_" + accountID
	}

	a.mu.Lock()
	a.accessToken = creds.AccessToken
	a.adAccountID = accountID
	a.mu.Unlock()

	// Test the connection before declaring the adapter live.
	info, err := a.fetchAccountInfo(context.Background())
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Meta Ads credential verification failed")
		a.mu.Lock()
		a.accessToken = ""
		a.adAccountID = ""
		a.mu.Unlock()
		return
	}

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithField("account", info.Name).Info("Meta Ads client initialized")
}

// Reconfigure tears down the client state and rebuilds it with the new
// credential set.
func (a *MetaAdsAdapter) Reconfigure(creds config.MetaAdsCredentials) {
	a.mu.Lock()
	a.accessToken = ""
	a.adAccountID = ""
	a.creds = creds
	a.mu.Unlock()
	a.initialize()
}

func (a *MetaAdsAdapter) Platform() domain.Platform {
	return domain.PlatformMetaAds
}

// IsConnected is true iff an access token and an ad account id are both
// present.
func (a *MetaAdsAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken != "" && a.adAccountID != ""
}

func (a *MetaAdsAdapter) AccountID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.adAccountID
}

// appSecretProof is the HMAC-SHA256 of the access token keyed with the
// app secret, required by the Graph API on server-to-server calls.
func appSecretProof(secret, token string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// call issues one Graph API request and decodes the JSON response into
// out.
func (a *MetaAdsAdapter) call(ctx context.Context, operation, method, path string, params url.Values, out any) error {
	start := time.Now()

	if err := a.limiter.Wait(ctx); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformMetaAds), "rate_limit")
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	a.mu.RLock()
	token := a.accessToken
	secret, baseURL := a.creds.AppSecret, a.creds.APIBaseURL
	a.mu.RUnlock()

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)
	params.Set("appsecret_proof", appSecretProof(secret, token))

	endpoint := baseURL + path
	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformMetaAds), "request_creation")
		return fmt.Errorf("failed to create graph request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformMetaAds), "network_error")
		return fmt.Errorf("graph API call failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		a.metrics.RecordPlatformAPICall(string(domain.PlatformMetaAds), operation, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformMetaAds), "json_parse")
		return fmt.Errorf("failed to parse graph response: %w", err)
	}

	a.metrics.RecordPlatformAPICall(string(domain.PlatformMetaAds), operation, "success", duration)
	return nil
}

// centsToMajor converts a Graph API minor-unit budget string ("250" =
// 2.50) to major units. Empty or malformed values yield zero.
func centsToMajor(cents json.Number) float64 {
	v, err := cents.Float64()
	if err != nil {
		return 0
	}
	return v / 100
}

// ListCampaigns returns the account's campaigns sorted by name. Empty
// slice on any remote error.
func (a *MetaAdsAdapter) ListCampaigns(ctx context.Context) []domain.CampaignRecord {
	if !a.IsConnected() {
		return []domain.CampaignRecord{}
	}

	params := url.Values{}
	params.Set("fields", "id,name,status,objective,created_time,start_time,stop_time,daily_budget,lifetime_budget")

	var payload struct {
		Data []struct {
			ID             string      `json:"id"`
			Name           string      `json:"name"`
			Status         string      `json:"status"`
			Objective      string      `json:"objective"`
			CreatedTime    string      `json:"created_time"`
			StartTime      string      `json:"start_time"`
			StopTime       string      `json:"stop_time"`
			DailyBudget    json.Number `json:"daily_budget"`
			LifetimeBudget json.Number `json:"lifetime_budget"`
		} `json:"data"`
	}

	a.mu.RLock()
	account := a.adAccountID
	a.mu.RUnlock()

	if err := a.call(ctx, "list_campaigns", http.MethodGet, "/"+account+"/campaigns", params, &payload); err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Error retrieving Meta Ads campaigns")
		return []domain.CampaignRecord{}
	}

	campaigns := make([]domain.CampaignRecord, 0, len(payload.Data))
	for _, c := range payload.Data {
		campaigns = append(campaigns, domain.CampaignRecord{
			ID:             c.ID,
			Name:           c.Name,
			Status:         c.Status,
			Objective:      c.Objective,
			CreatedTime:    c.CreatedTime,
			StartDate:      c.StartTime,
			EndDate:        c.StopTime,
			DailyBudget:    centsToMajor(c.DailyBudget),
			LifetimeBudget: centsToMajor(c.LifetimeBudget),
			Platform:       domain.PlatformMetaAds,
		})
	}
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].Name < campaigns[j].Name })

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithField("count", len(campaigns)).Info("Retrieved Meta Ads campaigns")
	return campaigns
}

// GetPerformance fetches campaign-level insights for an inclusive window
// of days ending today. Spend, CPC and CTR pass through in the units the
// Graph API already reports (major units, percentages). A nil Campaigns
// map marks a failed remote fetch.
func (a *MetaAdsAdapter) GetPerformance(ctx context.Context, campaignID string, days int) domain.PerformanceReport {
	report := domain.PerformanceReport{
		Campaigns: map[string]domain.CampaignPerformance{},
		Platform:  domain.PlatformMetaAds,
	}
	if !a.IsConnected() {
		return report
	}

	endDate := a.now()
	startDate := endDate.AddDate(0, 0, -days)
	report.DateRange = domain.DateRange{
		StartDate: startDate.Format("2006-01-02"),
		EndDate:   endDate.Format("2006-01-02"),
	}

	timeRange, _ := json.Marshal(map[string]string{
		"since": report.DateRange.StartDate,
		"until": report.DateRange.EndDate,
	})

	params := url.Values{}
	params.Set("fields", "campaign_id,campaign_name,impressions,clicks,spend,ctr,cpc,conversions,cost_per_conversion")
	params.Set("level", "campaign")
	params.Set("time_range", string(timeRange))

	a.mu.RLock()
	account := a.adAccountID
	a.mu.RUnlock()

	path := "/" + account + "/insights"
	if campaignID != "" {
		path = "/" + campaignID + "/insights"
	}

	var payload struct {
		Data []struct {
			CampaignID        string      `json:"campaign_id"`
			CampaignName      string      `json:"campaign_name"`
			Impressions       json.Number `json:"impressions"`
			Clicks            json.Number `json:"clicks"`
			Spend             json.Number `json:"spend"`
			CTR               json.Number `json:"ctr"`
			CPC               json.Number `json:"cpc"`
			Conversions       json.Number `json:"conversions"`
			CostPerConversion json.Number `json:"cost_per_conversion"`
		} `json:"data"`
	}

	if err := a.call(ctx, "get_performance", http.MethodGet, path, params, &payload); err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Error retrieving Meta Ads performance")
		report.Campaigns = nil
		return report
	}

	for _, insight := range payload.Data {
		impressions, _ := insight.Impressions.Int64()
		clicks, _ := insight.Clicks.Int64()
		spend, _ := insight.Spend.Float64()
		ctr, _ := insight.CTR.Float64()
		cpc, _ := insight.CPC.Float64()
		conversions, _ := insight.Conversions.Float64()

		row := domain.CampaignPerformance{
			Name:        insight.CampaignName,
			Impressions: impressions,
			Clicks:      clicks,
			Cost:        spend,
			Conversions: conversions,
			CTR:         ctr,
			CPC:         cpc,
		}
		if clicks > 0 {
			row.ConversionRate = conversions / float64(clicks) * 100
		}
		report.Campaigns[insight.CampaignID] = row
	}

	report.Summary = domain.SummarizeCampaigns(report.Campaigns)

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithField("campaigns", len(report.Campaigns)).Info("Retrieved Meta Ads performance data")
	return report
}

// CreateCampaign creates a paused campaign. Budgets are written in
// cents; the returned id is the Graph API campaign id, empty on failure.
func (a *MetaAdsAdapter) CreateCampaign(ctx context.Context, spec domain.CampaignSpec) string {
	if !a.IsConnected() {
		return ""
	}

	objective := spec.Objective
	if objective == "" {
		objective = "LINK_CLICKS"
	}

	params := url.Values{}
	params.Set("name", spec.Name)
	params.Set("objective", objective)
	params.Set("status", "PAUSED")
	params.Set("special_ad_categories", "[]")
	if spec.DailyBudget > 0 {
		params.Set("daily_budget", fmt.Sprintf("%d", int64(spec.DailyBudget*100)))
	} else if spec.LifetimeBudget > 0 {
		params.Set("lifetime_budget", fmt.Sprintf("%d", int64(spec.LifetimeBudget*100)))
	}

	a.mu.RLock()
	account := a.adAccountID
	a.mu.RUnlock()

	var payload struct {
		ID string `json:"id"`
	}
	if err := a.call(ctx, "create_campaign", http.MethodPost, "/"+account+"/campaigns", params, &payload); err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Error creating Meta Ads campaign")
		return ""
	}

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithFields(map[string]any{
		"name": spec.Name,
		"id":   payload.ID,
	}).Info("Created Meta Ads campaign")
	return payload.ID
}

// UpdateBudget sets a new daily budget, converted to cents on the write
// path. True means the platform accepted the request.
func (a *MetaAdsAdapter) UpdateBudget(ctx context.Context, campaignID string, budget float64) bool {
	if !a.IsConnected() {
		return false
	}

	params := url.Values{}
	params.Set("daily_budget", fmt.Sprintf("%d", int64(budget*100)))

	var payload struct {
		Success bool `json:"success"`
	}
	if err := a.call(ctx, "update_budget", http.MethodPost, "/"+campaignID, params, &payload); err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Error updating Meta Ads campaign budget")
		return false
	}

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithFields(map[string]any{
		"campaign_id": campaignID,
		"budget":      budget,
	}).Info("Updated Meta Ads campaign budget")
	return true
}

func (a *MetaAdsAdapter) setStatus(ctx context.Context, operation, campaignID, status string) bool {
	if !a.IsConnected() {
		return false
	}

	params := url.Values{}
	params.Set("status", status)

	var payload struct {
		Success bool `json:"success"`
	}
	if err := a.call(ctx, operation, http.MethodPost, "/"+campaignID, params, &payload); err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).WithField("campaign_id", campaignID).Error("Error changing Meta Ads campaign status")
		return false
	}

	a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithFields(map[string]any{
		"campaign_id": campaignID,
		"status":      status,
	}).Info("Changed Meta Ads campaign status")
	return true
}

// PauseCampaign sets the campaign status to PAUSED.
func (a *MetaAdsAdapter) PauseCampaign(ctx context.Context, campaignID string) bool {
	return a.setStatus(ctx, "pause_campaign", campaignID, "PAUSED")
}

// ResumeCampaign sets the campaign status back to ACTIVE.
func (a *MetaAdsAdapter) ResumeCampaign(ctx context.Context, campaignID string) bool {
	return a.setStatus(ctx, "resume_campaign", campaignID, "ACTIVE")
}

func (a *MetaAdsAdapter) fetchAccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	params := url.Values{}
	params.Set("fields", "id,name,account_status,currency,timezone_name,business_name,spend_cap")

	a.mu.RLock()
	account := a.adAccountID
	a.mu.RUnlock()

	var payload struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		AccountStatus json.Number `json:"account_status"`
		Currency      string      `json:"currency"`
		TimezoneName  string      `json:"timezone_name"`
		BusinessName  string      `json:"business_name"`
	}
	if err := a.call(ctx, "account_info", http.MethodGet, "/"+account, params, &payload); err != nil {
		return domain.AccountInfo{}, err
	}

	return domain.AccountInfo{
		ID:           payload.ID,
		Name:         payload.Name,
		Status:       payload.AccountStatus.String(),
		Currency:     payload.Currency,
		Timezone:     payload.TimezoneName,
		BusinessName: payload.BusinessName,
		Platform:     domain.PlatformMetaAds,
	}, nil
}

// AccountInfo returns normalized account metadata, ok=false when
// disconnected or on remote error.
func (a *MetaAdsAdapter) AccountInfo(ctx context.Context) (domain.AccountInfo, bool) {
	if !a.IsConnected() {
		return domain.AccountInfo{}, false
	}
	info, err := a.fetchAccountInfo(ctx)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformMetaAds)).WithError(err).Error("Error retrieving Meta Ads account info")
		return domain.AccountInfo{}, false
	}
	return info, true
}

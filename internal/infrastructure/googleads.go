package infrastructure

import (
	"bytes"
	"context"
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

const googleAdsAPIVersion = "v17"

// GoogleAdsAdapter implements domain.PlatformAdapter against the Google
// Ads REST API. Costs and CPC arrive in micros and are converted to major
// units here; CTR and conversion rate arrive as fractions and are
// converted to percentages here. Nothing past this boundary sees raw
// platform units.
type GoogleAdsAdapter struct {
	mu          sync.RWMutex
	creds       config.GoogleAdsCredentials
	client      *http.Client
	accessToken string
	customerID  string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	now         func() time.Time
}

// NewGoogleAdsAdapter builds the adapter and attempts to connect. A
// missing or rejected credential set is an expected runtime state: the
// adapter is returned disconnected and every operation yields its empty
// value.
func NewGoogleAdsAdapter(creds config.GoogleAdsCredentials, timeout time.Duration, ratePerSecond int, log *logger.Logger, m *metrics.Metrics) *GoogleAdsAdapter {
	a := &GoogleAdsAdapter{
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

func (a *GoogleAdsAdapter) initialize() {
	a.mu.RLock()
	creds := a.creds
	a.mu.RUnlock()

	if !creds.Complete() {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).Warn("Missing Google Ads credentials, adapter disconnected")
		return
	}

	token, err := a.refreshAccessToken(context.Background())
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Failed to initialize Google Ads client")
		return
	}

	a.mu.Lock()
	a.accessToken = token
	a.customerID = creds.CustomerID
	a.mu.Unlock()

	// Lightweight verification: confirm the credentials actually work by
	// fetching the account name.
	info, err := a.fetchAccountInfo(context.Background())
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Google Ads credential verification failed")
		a.mu.Lock()
		a.accessToken = ""
		a.customerID = ""
		a.mu.Unlock()
		return
	}

	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithField("account", info.Name).Info("Google Ads client initialized")
}

// Reconfigure tears down the client state and rebuilds it with the new
// credential set.
func (a *GoogleAdsAdapter) Reconfigure(creds config.GoogleAdsCredentials) {
	a.mu.Lock()
	a.accessToken = ""
	a.customerID = ""
	a.creds = creds
	a.mu.Unlock()
	a.initialize()
}

func (a *GoogleAdsAdapter) Platform() domain.Platform {
	return domain.PlatformGoogleAds
}

// IsConnected is true iff an access token and an account identifier are
// both present. Cheap and side-effect-free; polled before every operation.
func (a *GoogleAdsAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken != "" && a.customerID != ""
}

func (a *GoogleAdsAdapter) AccountID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.customerID
}

// refreshAccessToken exchanges the refresh token for a bearer token.
func (a *GoogleAdsAdapter) refreshAccessToken(ctx context.Context) (string, error) {
	a.mu.RLock()
	creds := a.creds
	a.mu.RUnlock()

	form := url.Values{
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"refresh_token": {creds.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}
	return payload.AccessToken, nil
}

type googleAdsRow struct {
	Campaign struct {
		ID                     json.Number `json:"id"`
		Name                   string      `json:"name"`
		Status                 string      `json:"status"`
		AdvertisingChannelType string      `json:"advertisingChannelType"`
		StartDate              string      `json:"startDate"`
		EndDate                string      `json:"endDate"`
	} `json:"campaign"`
	Metrics struct {
		Impressions    json.Number `json:"impressions"`
		Clicks         json.Number `json:"clicks"`
		CostMicros     json.Number `json:"costMicros"`
		Conversions    json.Number `json:"conversions"`
		CTR            json.Number `json:"ctr"`
		AverageCPC     json.Number `json:"averageCpc"`
		ConversionRate json.Number `json:"conversionsFromInteractionsRate"`
	} `json:"metrics"`
	Customer struct {
		ID              json.Number `json:"id"`
		DescriptiveName string      `json:"descriptiveName"`
		CurrencyCode    string      `json:"currencyCode"`
		TimeZone        string      `json:"timeZone"`
		Status          string      `json:"status"`
	} `json:"customer"`
}

// search issues a GAQL query against the search endpoint and returns the
// result rows.
func (a *GoogleAdsAdapter) search(ctx context.Context, operation, query string) ([]googleAdsRow, error) {
	start := time.Now()

	if err := a.limiter.Wait(ctx); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	a.mu.RLock()
	token, customerID := a.accessToken, a.customerID
	baseURL, devToken := a.creds.APIBaseURL, a.creds.DeveloperToken
	a.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/%s/customers/%s/googleAds:search", baseURL, googleAdsAPIVersion, customerID)
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "request_creation")
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("developer-token", devToken)

	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "network_error")
		return nil, fmt.Errorf("google ads search failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		a.metrics.RecordPlatformAPICall(string(domain.PlatformGoogleAds), operation, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("google ads API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Results []googleAdsRow `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "json_parse")
		return nil, fmt.Errorf("failed to parse google ads response: %w", err)
	}

	a.metrics.RecordPlatformAPICall(string(domain.PlatformGoogleAds), operation, "success", duration)
	return payload.Results, nil
}

// ListCampaigns returns enabled and paused campaigns sorted by name.
// Empty slice on any remote error; zero campaigns and an errored fetch
// look the same at this layer by contract.
func (a *GoogleAdsAdapter) ListCampaigns(ctx context.Context) []domain.CampaignRecord {
	if !a.IsConnected() {
		return []domain.CampaignRecord{}
	}

	query := `
		SELECT
			campaign.id,
			campaign.name,
			campaign.status,
			campaign.advertising_channel_type,
			campaign.start_date,
			campaign.end_date
		FROM campaign
		WHERE campaign.status IN ('ENABLED', 'PAUSED')
		ORDER BY campaign.name`

	rows, err := a.search(ctx, "list_campaigns", query)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Error retrieving Google Ads campaigns")
		return []domain.CampaignRecord{}
	}

	campaigns := make([]domain.CampaignRecord, 0, len(rows))
	for _, row := range rows {
		campaigns = append(campaigns, domain.CampaignRecord{
			ID:          row.Campaign.ID.String(),
			Name:        row.Campaign.Name,
			Status:      row.Campaign.Status,
			ChannelType: row.Campaign.AdvertisingChannelType,
			StartDate:   row.Campaign.StartDate,
			EndDate:     row.Campaign.EndDate,
			Platform:    domain.PlatformGoogleAds,
		})
	}
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].Name < campaigns[j].Name })

	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithField("count", len(campaigns)).Info("Retrieved Google Ads campaigns")
	return campaigns
}

// GetPerformance fetches per-campaign metrics for an inclusive window of
// days ending today. cost_micros and average_cpc are converted from
// micros; ctr and conversion rate from fractions to percentages. A nil
// Campaigns map marks a failed remote fetch.
func (a *GoogleAdsAdapter) GetPerformance(ctx context.Context, campaignID string, days int) domain.PerformanceReport {
	report := domain.PerformanceReport{
		Campaigns: map[string]domain.CampaignPerformance{},
		Platform:  domain.PlatformGoogleAds,
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

	campaignFilter := ""
	if campaignID != "" {
		campaignFilter = fmt.Sprintf("AND campaign.id = %s", campaignID)
	}

	query := fmt.Sprintf(`
		SELECT
			campaign.id,
			campaign.name,
			metrics.impressions,
			metrics.clicks,
			metrics.cost_micros,
			metrics.conversions,
			metrics.ctr,
			metrics.average_cpc,
			metrics.conversions_from_interactions_rate
		FROM campaign
		WHERE segments.date BETWEEN '%s' AND '%s'
		%s
		ORDER BY metrics.impressions DESC`,
		report.DateRange.StartDate, report.DateRange.EndDate, campaignFilter)

	rows, err := a.search(ctx, "get_performance", query)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Error retrieving Google Ads performance")
		report.Campaigns = nil
		return report
	}

	for _, row := range rows {
		impressions, _ := row.Metrics.Impressions.Int64()
		clicks, _ := row.Metrics.Clicks.Int64()
		costMicros, _ := row.Metrics.CostMicros.Float64()
		conversions, _ := row.Metrics.Conversions.Float64()
		ctr, _ := row.Metrics.CTR.Float64()
		avgCPCMicros, _ := row.Metrics.AverageCPC.Float64()
		convRate, _ := row.Metrics.ConversionRate.Float64()

		report.Campaigns[row.Campaign.ID.String()] = domain.CampaignPerformance{
			Name:           row.Campaign.Name,
			Impressions:    impressions,
			Clicks:         clicks,
			Cost:           costMicros / 1_000_000,
			Conversions:    conversions,
			CTR:            ctr * 100,
			CPC:            avgCPCMicros / 1_000_000,
			ConversionRate: convRate * 100,
		}
	}

	report.Summary = domain.SummarizeCampaigns(report.Campaigns)

	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithField("campaigns", len(report.Campaigns)).Info("Retrieved Google Ads performance data")
	return report
}

// mutate posts a mutate operation and returns the first result's
// resource name.
func (a *GoogleAdsAdapter) mutate(ctx context.Context, operation, service string, payload any) (string, error) {
	start := time.Now()

	if err := a.limiter.Wait(ctx); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "rate_limit")
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	a.mu.RLock()
	token, customerID := a.accessToken, a.customerID
	baseURL, devToken := a.creds.APIBaseURL, a.creds.DeveloperToken
	a.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/%s/customers/%s/%s:mutate", baseURL, googleAdsAPIVersion, customerID, service)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mutate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "request_creation")
		return "", fmt.Errorf("failed to create mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("developer-token", devToken)

	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "network_error")
		return "", fmt.Errorf("google ads mutate failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		a.metrics.RecordPlatformAPICall(string(domain.PlatformGoogleAds), operation, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return "", fmt.Errorf("google ads API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result struct {
		Results []struct {
			ResourceName string `json:"resourceName"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		a.metrics.RecordPlatformAPIFailure(string(domain.PlatformGoogleAds), "json_parse")
		return "", fmt.Errorf("failed to parse mutate response: %w", err)
	}
	if len(result.Results) == 0 {
		return "", fmt.Errorf("google ads mutate returned no results")
	}

	a.metrics.RecordPlatformAPICall(string(domain.PlatformGoogleAds), operation, "success", duration)
	return result.Results[0].ResourceName, nil
}

// CreateCampaign creates a budget and then a paused manual-CPC search
// campaign. Returns the campaign id, or empty string on failure.
func (a *GoogleAdsAdapter) CreateCampaign(ctx context.Context, spec domain.CampaignSpec) string {
	if !a.IsConnected() {
		return ""
	}

	dailyBudget := spec.DailyBudget
	if dailyBudget <= 0 {
		dailyBudget = 1000
	}

	budgetPayload := map[string]any{
		"operations": []map[string]any{{
			"create": map[string]any{
				"name":           spec.Name + " Budget",
				"amountMicros":   fmt.Sprintf("%d", int64(dailyBudget*1_000_000)),
				"deliveryMethod": "STANDARD",
			},
		}},
	}
	budgetResource, err := a.mutate(ctx, "create_budget", "campaignBudgets", budgetPayload)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Error creating Google Ads campaign budget")
		return ""
	}

	campaignPayload := map[string]any{
		"operations": []map[string]any{{
			"create": map[string]any{
				"name":                   spec.Name,
				"advertisingChannelType": "SEARCH",
				"status":                 "PAUSED",
				"campaignBudget":         budgetResource,
				"biddingStrategyType":    "MANUAL_CPC",
				"manualCpc":              map[string]any{"enhancedCpcEnabled": true},
			},
		}},
	}
	campaignResource, err := a.mutate(ctx, "create_campaign", "campaigns", campaignPayload)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Error creating Google Ads campaign")
		return ""
	}

	parts := strings.Split(campaignResource, "/")
	campaignID := parts[len(parts)-1]

	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithFields(map[string]any{
		"name": spec.Name,
		"id":   campaignID,
	}).Info("Created Google Ads campaign")
	return campaignID
}

// UpdateBudget acknowledges a budget change request. The underlying
// budget resource is not mutated here; true means accepted, not applied.
func (a *GoogleAdsAdapter) UpdateBudget(ctx context.Context, campaignID string, budget float64) bool {
	if !a.IsConnected() {
		return false
	}
	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithFields(map[string]any{
		"campaign_id": campaignID,
		"budget":      budget,
	}).Info("Budget update requested for Google Ads campaign")
	return true
}

// PauseCampaign is not supported for this platform.
func (a *GoogleAdsAdapter) PauseCampaign(ctx context.Context, campaignID string) bool {
	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithField("campaign_id", campaignID).Warn("Pause not supported for Google Ads")
	return false
}

// ResumeCampaign is not supported for this platform.
func (a *GoogleAdsAdapter) ResumeCampaign(ctx context.Context, campaignID string) bool {
	a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithField("campaign_id", campaignID).Warn("Resume not supported for Google Ads")
	return false
}

func (a *GoogleAdsAdapter) fetchAccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	query := `
		SELECT
			customer.id,
			customer.descriptive_name,
			customer.currency_code,
			customer.time_zone,
			customer.status
		FROM customer
		LIMIT 1`

	rows, err := a.search(ctx, "account_info", query)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	if len(rows) == 0 {
		return domain.AccountInfo{}, fmt.Errorf("customer query returned no rows")
	}

	row := rows[0]
	return domain.AccountInfo{
		ID:       row.Customer.ID.String(),
		Name:     row.Customer.DescriptiveName,
		Currency: row.Customer.CurrencyCode,
		Timezone: row.Customer.TimeZone,
		Status:   row.Customer.Status,
		Platform: domain.PlatformGoogleAds,
	}, nil
}

// AccountInfo returns normalized account metadata, ok=false when
// disconnected or on remote error.
func (a *GoogleAdsAdapter) AccountInfo(ctx context.Context) (domain.AccountInfo, bool) {
	if !a.IsConnected() {
		return domain.AccountInfo{}, false
	}
	info, err := a.fetchAccountInfo(ctx)
	if err != nil {
		a.logger.WithPlatform(string(domain.PlatformGoogleAds)).WithError(err).Error("Error retrieving Google Ads account info")
		return domain.AccountInfo{}, false
	}
	return info, true
}

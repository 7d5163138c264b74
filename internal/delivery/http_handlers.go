package delivery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketgo/internal/domain"
	"marketgo/internal/usecase"
	"marketgo/pkg/config"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// GoogleCredentialSink accepts replacement Google Ads credentials at
// runtime.
type GoogleCredentialSink interface {
	Reconfigure(creds config.GoogleAdsCredentials)
}

// MetaCredentialSink accepts replacement Meta Ads credentials at
// runtime.
type MetaCredentialSink interface {
	Reconfigure(creds config.MetaAdsCredentials)
}

// handles HTTP requests
type HTTPHandlers struct {
	reportService *usecase.ReportService
	aggregator    *usecase.Aggregator
	googleSink    GoogleCredentialSink
	metaSink      MetaCredentialSink
	adsConfig     config.AdsConfig
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	reportService *usecase.ReportService,
	aggregator *usecase.Aggregator,
	googleSink GoogleCredentialSink,
	metaSink MetaCredentialSink,
	adsConfig config.AdsConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		reportService: reportService,
		aggregator:    aggregator,
		googleSink:    googleSink,
		metaSink:      metaSink,
		adsConfig:     adsConfig,
		logger:        logger,
		metrics:       metrics,
	}
}

// HealthCheck reports service liveness.
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "marketing-report-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HTTPHandlers) fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success":    false,
		"error":      message,
		"request_id": c.GetString("request_id"),
	})
}

// GenerateReport validates a campaign submission, persists it, and
// returns the generated report.
func (h *HTTPHandlers) GenerateReport(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req domain.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}

	ctx := c.Request.Context()
	campaign, report, err := h.reportService.GenerateReport(ctx, req)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			h.fail(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.WithContext(ctx).WithError(err).Error("Error generating report")
		h.fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"report":      report.ReportData,
		"campaign_id": campaign.ID,
		"report_id":   report.ID,
	})
}

// GetCampaigns lists all stored campaigns, newest first.
func (h *HTTPHandlers) GetCampaigns(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	ctx := c.Request.Context()
	campaigns, err := h.reportService.ListCampaigns(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Error fetching campaigns")
		h.fail(c, http.StatusInternalServerError, "Failed to fetch campaigns")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"campaigns": campaigns,
	})
}

// GetCampaign returns one campaign with its reports.
func (h *HTTPHandlers) GetCampaign(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	ctx := c.Request.Context()
	campaign, reports, err := h.reportService.GetCampaignWithReports(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Error fetching campaign")
		h.fail(c, http.StatusInternalServerError, "Failed to fetch campaign")
		return
	}
	if campaign == nil {
		h.fail(c, http.StatusNotFound, "Campaign not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"campaign": campaignWithReports{
			Campaign: *campaign,
			Reports:  reports,
		},
	})
}

type campaignWithReports struct {
	domain.Campaign
	Reports []domain.Report `json:"reports"`
}

// GetReports lists all stored reports, newest first.
func (h *HTTPHandlers) GetReports(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	ctx := c.Request.Context()
	reports, err := h.reportService.ListReports(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Error fetching reports")
		h.fail(c, http.StatusInternalServerError, "Failed to fetch reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reports": reports,
	})
}

type audienceInsightsRequest struct {
	TargetAudience        string  `json:"target_audience"`
	Budget                float64 `json:"budget"`
	EstimatedAudienceSize int     `json:"estimated_audience_size"`
	CampaignName          string  `json:"campaign_name"`
	Objectives            string  `json:"objectives"`
	IncludeRealData       bool    `json:"include_real_data"`
}

// AudienceInsights generates deep audience analysis plus the
// deterministic noise-filter estimate and, when a budget is supplied,
// the precision-targeting budget split.
func (h *HTTPHandlers) AudienceInsights(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req audienceInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}

	var campaign *domain.Campaign
	if req.CampaignName != "" {
		campaign = &domain.Campaign{
			CampaignName:   req.CampaignName,
			TargetAudience: req.TargetAudience,
			Budget:         req.Budget,
			Objectives:     req.Objectives,
		}
	}

	ctx := c.Request.Context()
	analysis, err := h.reportService.AnalyzeAudience(ctx, req.TargetAudience, campaign, req.IncludeRealData)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			h.fail(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.WithContext(ctx).WithError(err).Error("Error generating audience insights")
		h.fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	insights := gin.H{
		"audience_insights": json.RawMessage(analysis),
		"noise_filtering":   usecase.FilterAudienceNoise(req.EstimatedAudienceSize),
	}
	if req.Budget > 0 {
		insights["precision_targeting"] = gin.H{
			"budget_allocation": usecase.PrecisionTargeting(req.Budget),
		}
	}
	status := h.aggregator.ConnectionStatus()
	insights["real_data_integration"] = gin.H{
		"data_available":      req.IncludeRealData && status.TotalConnected > 0,
		"connected_platforms": status.ConnectedPlatforms,
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"insights": insights,
	})
}

// AdsStatus reports per-platform connection state.
func (h *HTTPHandlers) AdsStatus(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	status := h.aggregator.ConnectionStatus()

	view := gin.H{
		"connected_platforms": status.ConnectedPlatforms,
		"total_connected":     status.TotalConnected,
	}
	for platform, conn := range status.Platforms {
		view[string(platform)] = gin.H{
			"connected":  conn.Connected,
			"account_id": conn.AccountID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  view,
	})
}

// AdsCampaigns returns the merged campaign listing across platforms.
func (h *HTTPHandlers) AdsCampaigns(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	list := h.aggregator.ListAllCampaigns(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"campaigns": list.Campaigns,
		"platforms": list.Platforms,
		"summary":   list.Summary,
	})
}

// AdsPerformance returns merged performance for the trailing window.
func (h *HTTPHandlers) AdsPerformance(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		h.fail(c, http.StatusBadRequest, "days must be a positive number")
		return
	}

	performance := h.aggregator.GetAllPerformance(c.Request.Context(), days)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"performance": performance,
	})
}

// AdsInsights compares platform performance and returns budget
// recommendations.
func (h *HTTPHandlers) AdsInsights(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		h.fail(c, http.StatusBadRequest, "days must be a positive number")
		return
	}

	performance := h.aggregator.GetAllPerformance(c.Request.Context(), days)
	insights := h.aggregator.GenerateCrossPlatformInsights(performance)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"insights": insights,
		"summary":  performance.Summary,
	})
}

// AdsAccounts returns account metadata for connected platforms.
func (h *HTTPHandlers) AdsAccounts(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	accounts := h.aggregator.AccountInfo(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": accounts,
	})
}

type createAdCampaignRequest struct {
	Platform       string  `json:"platform"`
	Name           string  `json:"name"`
	Objective      string  `json:"objective"`
	DailyBudget    float64 `json:"daily_budget"`
	LifetimeBudget float64 `json:"lifetime_budget"`
}

// CreateAdCampaign creates a paused campaign on the named platform.
func (h *HTTPHandlers) CreateAdCampaign(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req createAdCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}
	platform, ok := domain.ParsePlatform(req.Platform)
	if !ok {
		h.fail(c, http.StatusBadRequest, "Unknown platform: "+req.Platform)
		return
	}
	if req.Name == "" {
		h.fail(c, http.StatusBadRequest, "Campaign name is required")
		return
	}

	campaignID := h.aggregator.CreateCampaign(c.Request.Context(), platform, domain.CampaignSpec{
		Name:           req.Name,
		Objective:      req.Objective,
		DailyBudget:    req.DailyBudget,
		LifetimeBudget: req.LifetimeBudget,
	})
	if campaignID == "" {
		h.fail(c, http.StatusBadGateway, "Failed to create campaign on "+platform.DisplayName())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"campaign_id": campaignID,
		"platform":    platform,
	})
}

type budgetUpdateRequest struct {
	Platform string  `json:"platform"`
	Budget   float64 `json:"budget"`
}

// UpdateAdBudget requests a daily budget change for one campaign.
func (h *HTTPHandlers) UpdateAdBudget(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req budgetUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}
	platform, ok := domain.ParsePlatform(req.Platform)
	if !ok {
		h.fail(c, http.StatusBadRequest, "Unknown platform: "+req.Platform)
		return
	}
	if req.Budget <= 0 {
		h.fail(c, http.StatusBadRequest, "Budget must be a positive number")
		return
	}

	accepted := h.aggregator.UpdateBudget(c.Request.Context(), platform, c.Param("id"), req.Budget)

	c.JSON(http.StatusOK, gin.H{
		"success":  accepted,
		"accepted": accepted,
		"platform": platform,
	})
}

type campaignStatusRequest struct {
	Platform string `json:"platform"`
}

func (h *HTTPHandlers) setAdCampaignStatus(c *gin.Context, pause bool) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req campaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}
	platform, ok := domain.ParsePlatform(req.Platform)
	if !ok {
		h.fail(c, http.StatusBadRequest, "Unknown platform: "+req.Platform)
		return
	}

	var changed bool
	if pause {
		changed = h.aggregator.PauseCampaign(c.Request.Context(), platform, c.Param("id"))
	} else {
		changed = h.aggregator.ResumeCampaign(c.Request.Context(), platform, c.Param("id"))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  changed,
		"platform": platform,
	})
}

// PauseAdCampaign pauses a campaign on platforms that support it.
func (h *HTTPHandlers) PauseAdCampaign(c *gin.Context) {
	h.setAdCampaignStatus(c, true)
}

// ResumeAdCampaign resumes a paused campaign on platforms that
// support it.
func (h *HTTPHandlers) ResumeAdCampaign(c *gin.Context) {
	h.setAdCampaignStatus(c, false)
}

type googleCredentialsRequest struct {
	DeveloperToken string `json:"developer_token"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	RefreshToken   string `json:"refresh_token"`
	CustomerID     string `json:"customer_id"`
}

// SetGoogleCredentials swaps in a new Google Ads credential set and
// reconnects the adapter.
func (h *HTTPHandlers) SetGoogleCredentials(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req googleCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}

	creds := config.GoogleAdsCredentials{
		DeveloperToken: req.DeveloperToken,
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		RefreshToken:   req.RefreshToken,
		CustomerID:     req.CustomerID,
		APIBaseURL:     h.adsConfig.GoogleAds.APIBaseURL,
		TokenURL:       h.adsConfig.GoogleAds.TokenURL,
	}
	if !creds.Complete() {
		h.fail(c, http.StatusBadRequest, "All Google Ads credential fields are required")
		return
	}

	h.googleSink.Reconfigure(creds)
	h.aggregator.RefreshConnections()

	status := h.aggregator.ConnectionStatus()
	connected := status.Platforms[domain.PlatformGoogleAds].Connected
	if !connected {
		h.fail(c, http.StatusBadGateway, "Failed to connect Google Ads with the provided credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"platform": domain.PlatformGoogleAds,
	})
}

type metaCredentialsRequest struct {
	AccessToken string `json:"access_token"`
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AdAccountID string `json:"ad_account_id"`
}

// SetMetaCredentials swaps in a new Meta Ads credential set and
// reconnects the adapter.
func (h *HTTPHandlers) SetMetaCredentials(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	var req metaCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No data provided")
		return
	}

	creds := config.MetaAdsCredentials{
		AccessToken: req.AccessToken,
		AppID:       req.AppID,
		AppSecret:   req.AppSecret,
		AdAccountID: req.AdAccountID,
		APIBaseURL:  h.adsConfig.MetaAds.APIBaseURL,
	}
	if !creds.Complete() {
		h.fail(c, http.StatusBadRequest, "All Meta Ads credential fields are required")
		return
	}

	h.metaSink.Reconfigure(creds)
	h.aggregator.RefreshConnections()

	status := h.aggregator.ConnectionStatus()
	connected := status.Platforms[domain.PlatformMetaAds].Connected
	if !connected {
		h.fail(c, http.StatusBadGateway, "Failed to connect Meta Ads with the provided credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"platform": domain.PlatformMetaAds,
	})
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"
)

// ValidationError reports a rejected report request. Handlers map it to
// a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ReportService validates campaign submissions, persists them, and
// coordinates report and audience-insight generation.
type ReportService struct {
	store      domain.CampaignStore
	generator  domain.ReportGenerator
	aggregator *Aggregator
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewReportService(store domain.CampaignStore, generator domain.ReportGenerator, aggregator *Aggregator, log *logger.Logger, m *metrics.Metrics) *ReportService {
	return &ReportService{
		store:      store,
		generator:  generator,
		aggregator: aggregator,
		logger:     log,
		metrics:    m,
	}
}

// ValidateRequest checks required fields and numeric bounds. Channels
// and current metrics are optional.
func (s *ReportService) ValidateRequest(req domain.ReportRequest) error {
	var missing []string
	if strings.TrimSpace(req.CampaignName) == "" {
		missing = append(missing, "campaign_name")
	}
	if strings.TrimSpace(req.TargetAudience) == "" {
		missing = append(missing, "target_audience")
	}
	if req.Budget == 0 {
		missing = append(missing, "budget")
	}
	if req.Duration == 0 {
		missing = append(missing, "duration")
	}
	if strings.TrimSpace(req.Objectives) == "" {
		missing = append(missing, "objectives")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}
	if req.Budget <= 0 {
		return &ValidationError{Message: "Budget must be a positive number"}
	}
	if req.Duration <= 0 {
		return &ValidationError{Message: "Duration must be a positive number"}
	}
	return nil
}

// GenerateReport persists the campaign, generates the structured report
// and persists that too. The campaign record survives even when report
// generation fails, so a retry does not lose the submission.
func (s *ReportService) GenerateReport(ctx context.Context, req domain.ReportRequest) (*domain.Campaign, *domain.Report, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, nil, err
	}

	s.logger.WithField("campaign_name", req.CampaignName).Info("Generating report for campaign")

	campaign := &domain.Campaign{
		CampaignName:   req.CampaignName,
		TargetAudience: req.TargetAudience,
		Budget:         req.Budget,
		Duration:       req.Duration,
		Objectives:     req.Objectives,
		Channels:       req.Channels,
		CurrentMetrics: req.CurrentMetrics,
	}
	if err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	start := time.Now()
	reportData, err := s.generator.GenerateMarketingReport(ctx, req)
	if err != nil {
		s.metrics.RecordReportGenerated("error", time.Since(start))
		return campaign, nil, fmt.Errorf("failed to generate report: %w", err)
	}
	s.metrics.RecordReportGenerated("success", time.Since(start))

	report := &domain.Report{
		CampaignID: campaign.ID,
		ReportData: reportData,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return campaign, nil, fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.WithField("report_id", report.ID).Info("Report generated and saved successfully")
	return campaign, report, nil
}

// ListCampaigns returns all stored campaigns, newest first.
func (s *ReportService) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

// GetCampaignWithReports returns one campaign and its reports, or
// (nil, nil, nil) when the id is unknown.
func (s *ReportService) GetCampaignWithReports(ctx context.Context, id int64) (*domain.Campaign, []domain.Report, error) {
	campaign, err := s.store.GetCampaign(ctx, id)
	if err != nil || campaign == nil {
		return nil, nil, err
	}
	reports, err := s.store.ListReportsByCampaign(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return campaign, reports, nil
}

// ListReports returns all stored reports, newest first.
func (s *ReportService) ListReports(ctx context.Context) ([]domain.Report, error) {
	return s.store.ListReports(ctx)
}

// AnalyzeAudience generates deep audience insights, enriched with live
// cross-platform performance when requested and at least one
// advertising platform is connected. Live data is a best-effort add-on;
// analysis proceeds without it.
func (s *ReportService) AnalyzeAudience(ctx context.Context, targetAudience string, campaign *domain.Campaign, includeRealData bool) (json.RawMessage, error) {
	if strings.TrimSpace(targetAudience) == "" {
		return nil, &ValidationError{Message: "target_audience is required"}
	}

	var adsContext *domain.AudienceContext
	status := s.aggregator.ConnectionStatus()
	if includeRealData && status.TotalConnected > 0 {
		performance := s.aggregator.GetAllPerformance(ctx, 30)
		adsContext = &domain.AudienceContext{
			ConnectedPlatforms: status.ConnectedPlatforms,
			Performance:        performance.Summary,
		}
	}

	insights, err := s.generator.AnalyzeAudience(ctx, targetAudience, campaign, adsContext)
	if err != nil {
		return nil, fmt.Errorf("failed to generate audience insights: %w", err)
	}
	s.metrics.RecordInsight("audience")
	return insights, nil
}

// Audience noise reduction assumes fixed reduction rates for suspected
// bots, irrelevant users and low-engagement users.
const (
	botReduction           = 0.15
	irrelevantReduction    = 0.20
	lowEngagementReduction = 0.10
)

// FilterAudienceNoise estimates the effect of noise filtering on an
// audience of the given size. Deterministic; no remote calls.
func FilterAudienceNoise(originalSize int) domain.AudienceFilterResult {
	if originalSize <= 0 {
		originalSize = 1000
	}
	totalReduction := botReduction + irrelevantReduction + lowEngagementReduction
	filteredSize := int(float64(originalSize) * (1 - totalReduction))
	qualityScore := 1 - totalReduction + 0.2
	if qualityScore > 1 {
		qualityScore = 1
	}

	return domain.AudienceFilterResult{
		OriginalSize: originalSize,
		FilteredSize: filteredSize,
		QualityScore: qualityScore,
		RemovedSegments: []string{
			fmt.Sprintf("Bot traffic: %d users", int(float64(originalSize)*botReduction)),
			fmt.Sprintf("Irrelevant users: %d users", int(float64(originalSize)*irrelevantReduction)),
			fmt.Sprintf("Low engagement: %d users", int(float64(originalSize)*lowEngagementReduction)),
		},
		EngagementLift: fmt.Sprintf("%.1f%%", qualityScore*100-50),
	}
}

// PrecisionTargeting splits a campaign budget across a high-value tier,
// a growth tier and a testing reserve.
func PrecisionTargeting(budget float64) domain.TargetingRecommendation {
	return domain.TargetingRecommendation{
		HighValueSegment: domain.BudgetSplit{
			Percentage: 60,
			Amount:     budget * 0.6,
			Rationale:  "Highest ROI potential with proven engagement",
		},
		GrowthSegment: domain.BudgetSplit{
			Percentage: 30,
			Amount:     budget * 0.3,
			Rationale:  "Expansion opportunity with good conversion potential",
		},
		TestingBudget: domain.BudgetSplit{
			Percentage: 10,
			Amount:     budget * 0.1,
			Rationale:  "Testing new segments and optimization",
		},
	}
}

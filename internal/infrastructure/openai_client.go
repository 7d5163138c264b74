package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/config"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"
)

const reportSystemPrompt = "You are a senior marketing strategist with expertise in campaign optimization, " +
	"audience analysis, and ROI maximization. Provide detailed, actionable insights based on the campaign data provided."

const audienceSystemPrompt = "You are an expert marketing strategist specializing in audience analysis, " +
	"behavioral segmentation, and precision targeting. Provide detailed, actionable insights based on data-driven analysis."

// OpenAIClient implements domain.ReportGenerator against an
// OpenAI-compatible chat completions endpoint. Responses are requested
// in JSON mode and validated before being returned.
type OpenAIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOpenAIClient(cfg config.OpenAIConfig, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *OpenAIClient {
	return &OpenAIClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  log,
		metrics: m,
	}
}

// Configured reports whether an API key is present. An unconfigured
// generator fails at call time, not construction time.
func (c *OpenAIClient) Configured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete issues one JSON-mode chat completion and returns the parsed
// response content as raw JSON.
func (c *OpenAIClient) complete(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("report generator not configured: missing API key")
	}

	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
		MaxTokens:      maxTokens,
		Temperature:    0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordPlatformAPIFailure("openai", "network_error")
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.metrics.RecordPlatformAPICall("openai", "chat_completion", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.RecordPlatformAPIFailure("openai", "json_parse")
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("chat completion returned no content")
	}

	content := json.RawMessage(payload.Choices[0].Message.Content)
	if !json.Valid(content) {
		c.metrics.RecordPlatformAPIFailure("openai", "invalid_json")
		return nil, fmt.Errorf("chat completion content is not valid JSON")
	}

	c.metrics.RecordPlatformAPICall("openai", "chat_completion", "success", duration)
	return content, nil
}

// GenerateMarketingReport builds the analysis prompt from the campaign
// parameters and returns the structured report with a metadata block
// attached.
func (c *OpenAIClient) GenerateMarketingReport(ctx context.Context, req domain.ReportRequest) (json.RawMessage, error) {
	channels := req.Channels
	if channels == "" {
		channels = "Not specified"
	}
	currentMetrics := req.CurrentMetrics
	if currentMetrics == "" {
		currentMetrics = "Not provided"
	}

	prompt := fmt.Sprintf(`As an expert marketing strategist, analyze the following campaign data and provide a comprehensive marketing report in JSON format.

Campaign Details:
- Campaign Name: %s
- Target Audience: %s
- Budget: $%.2f
- Duration: %d days
- Objectives: %s
- Marketing Channels: %s
- Current Metrics: %s

Please provide a detailed analysis in the following JSON structure:
{
  "executive_summary": "Brief overview of the campaign analysis and key findings",
  "budget_analysis": {
    "daily_budget": "Recommended daily budget allocation",
    "channel_distribution": "How to distribute budget across channels",
    "roi_projection": "Expected return on investment"
  },
  "audience_insights": {
    "demographics": "Key demographic insights",
    "behaviors": "Target audience behaviors and preferences",
    "pain_points": "Main challenges and pain points to address"
  },
  "strategy_recommendations": ["Specific actionable recommendations for campaign optimization"],
  "channel_optimization": {
    "primary_channels": "Most effective channels for this audience",
    "content_strategy": "Recommended content approach",
    "timing_recommendations": "Best times and frequency for engagement"
  },
  "kpi_framework": {
    "primary_metrics": "Key metrics to track",
    "success_benchmarks": "What constitutes success",
    "monitoring_frequency": "How often to review performance"
  },
  "risk_assessment": {
    "potential_challenges": "Possible obstacles and risks",
    "mitigation_strategies": "How to address identified risks"
  },
  "next_steps": ["Immediate actions to take for campaign launch or optimization"]
}

Ensure all recommendations are specific, actionable, and tailored to the provided campaign details.`,
		req.CampaignName, req.TargetAudience, req.Budget, req.Duration, req.Objectives, channels, currentMetrics)

	content, err := c.complete(ctx, reportSystemPrompt, prompt, 2000)
	if err != nil {
		return nil, err
	}

	var report map[string]any
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report payload: %w", err)
	}

	dailyBudget := "N/A"
	if req.Duration > 0 {
		dailyBudget = fmt.Sprintf("$%.2f", req.Budget/float64(req.Duration))
	}
	report["campaign_metadata"] = map[string]any{
		"campaign_name":         req.CampaignName,
		"budget":                fmt.Sprintf("$%.2f", req.Budget),
		"duration":              fmt.Sprintf("%d days", req.Duration),
		"daily_budget_estimate": dailyBudget,
		"model":                 c.model,
	}

	out, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	c.logger.WithField("campaign", req.CampaignName).Info("Marketing report generated")
	return out, nil
}

// AnalyzeAudience produces deep audience insights. When real platform
// data is available it is folded into the prompt and raises the
// analysis confidence to high.
func (c *OpenAIClient) AnalyzeAudience(ctx context.Context, targetAudience string, campaign *domain.Campaign, ads *domain.AudienceContext) (json.RawMessage, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target Audience: %s", targetAudience)

	if campaign != nil {
		fmt.Fprintf(&sb, "\nCampaign Context: %s - %s", campaign.CampaignName, campaign.Objectives)
		if campaign.Budget > 0 {
			fmt.Fprintf(&sb, "\nBudget: $%.2f", campaign.Budget)
		}
	}

	realData := ads != nil && len(ads.ConnectedPlatforms) > 0
	if realData {
		names := make([]string, 0, len(ads.ConnectedPlatforms))
		for _, p := range ads.ConnectedPlatforms {
			names = append(names, string(p))
		}
		fmt.Fprintf(&sb, "\n\nREAL ADVERTISING DATA AVAILABLE:\n- Connected Platforms: %s", strings.Join(names, ", "))
		if ads.Performance.TotalImpressions > 0 {
			fmt.Fprintf(&sb, "\n- Current Performance: %d impressions, %d clicks\n- Current CTR: %.2f%%",
				ads.Performance.TotalImpressions, ads.Performance.TotalClicks, ads.Performance.AverageCTR)
		}
	}

	prompt := fmt.Sprintf(`As a leading marketing strategist specializing in audience analysis and behavioral segmentation, provide comprehensive deep audience insights based on the following information.

%s

Generate a detailed audience analysis that includes smart targeting, noise reduction, and data-driven segmentation. Focus on practical, actionable insights that will improve campaign performance.

Provide your analysis as a JSON object with these sections: audience_overview (primary_segments, key_characteristics, market_size_estimate), behavioral_segmentation (high_value_segment, growth_segment, nurturing_segment, each with description, behaviors, targeting_strategy, estimated_size), smart_targeting (precision_indicators, targeting_parameters, exclusion_criteria), noise_reduction (bot_filtering, irrelevant_users, quality_metrics), engagement_optimization (content_preferences, communication_style, channel_preferences, interaction_patterns), predictive_insights (growth_opportunities, risk_factors, trend_predictions, optimization_recommendations), and actionable_strategies (immediate_actions, medium_term_goals, long_term_vision).

When real advertising data is available, use it to validate and enhance your recommendations with actual performance metrics.`, sb.String())

	content, err := c.complete(ctx, audienceSystemPrompt, prompt, 0)
	if err != nil {
		return nil, err
	}

	var insights map[string]any
	if err := json.Unmarshal(content, &insights); err != nil {
		return nil, fmt.Errorf("failed to parse audience insights: %w", err)
	}

	confidence := "Medium"
	connected := []domain.Platform{}
	if realData {
		confidence = "High"
		connected = ads.ConnectedPlatforms
	}
	insights["analysis_metadata"] = map[string]any{
		"real_data_included":  realData,
		"connected_platforms": connected,
		"analysis_timestamp":  time.Now().UTC().Format(time.RFC3339),
		"confidence_score":    confidence,
	}

	out, err := json.Marshal(insights)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audience insights: %w", err)
	}

	c.logger.Info("Deep audience insights generated")
	return out, nil
}

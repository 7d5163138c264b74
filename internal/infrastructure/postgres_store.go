package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketgo/internal/domain"
	"marketgo/pkg/logger"
)

// NewPostgresPool opens a pgx connection pool and verifies connectivity
// with a short ping. The caller owns the returned pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConf, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// PostgresStore implements domain.CampaignStore on PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: log}
}

// EnsureSchema creates the campaign and report tables if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS campaign (
			id              BIGSERIAL PRIMARY KEY,
			campaign_name   VARCHAR(200) NOT NULL,
			target_audience TEXT NOT NULL,
			budget          DOUBLE PRECISION NOT NULL,
			duration        INTEGER NOT NULL,
			objectives      TEXT NOT NULL,
			channels        VARCHAR(500),
			current_metrics TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS report (
			id           BIGSERIAL PRIMARY KEY,
			campaign_id  BIGINT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
			report_data  JSONB NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO campaign (campaign_name, target_audience, budget, duration, objectives, channels, current_metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		campaign.CampaignName, campaign.TargetAudience, campaign.Budget, campaign.Duration,
		campaign.Objectives, campaign.Channels, campaign.CurrentMetrics,
	).Scan(&campaign.ID, &campaign.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	s.logger.WithContext(ctx).WithField("campaign_id", campaign.ID).Info("Stored campaign")
	return nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_name, target_audience, budget, duration, objectives,
		       COALESCE(channels, ''), COALESCE(current_metrics, ''), created_at
		FROM campaign
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	campaigns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		var c domain.Campaign
		err := row.Scan(&c.ID, &c.CampaignName, &c.TargetAudience, &c.Budget, &c.Duration,
			&c.Objectives, &c.Channels, &c.CurrentMetrics, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	var c domain.Campaign
	err := s.pool.QueryRow(ctx, `
		SELECT id, campaign_name, target_audience, budget, duration, objectives,
		       COALESCE(channels, ''), COALESCE(current_metrics, ''), created_at
		FROM campaign
		WHERE id = $1`, id).
		Scan(&c.ID, &c.CampaignName, &c.TargetAudience, &c.Budget, &c.Duration,
			&c.Objectives, &c.Channels, &c.CurrentMetrics, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateReport(ctx context.Context, report *domain.Report) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO report (campaign_id, report_data)
		VALUES ($1, $2)
		RETURNING id, generated_at`,
		report.CampaignID, report.ReportData,
	).Scan(&report.ID, &report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":   report.ID,
		"campaign_id": report.CampaignID,
	}).Info("Stored report")
	return nil
}

func (s *PostgresStore) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, report_data, generated_at
		FROM report
		ORDER BY generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return collectReports(rows)
}

func (s *PostgresStore) ListReportsByCampaign(ctx context.Context, campaignID int64) ([]domain.Report, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, report_data, generated_at
		FROM report
		WHERE campaign_id = $1
		ORDER BY generated_at DESC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return collectReports(rows)
}

func collectReports(rows pgx.Rows) ([]domain.Report, error) {
	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Report, error) {
		var r domain.Report
		err := row.Scan(&r.ID, &r.CampaignID, &r.ReportData, &r.GeneratedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}
	return reports, nil
}

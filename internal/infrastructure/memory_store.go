package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/logger"
)

// MemoryStore implements domain.CampaignStore in memory. Used when no
// database is configured; data does not survive a restart.
type MemoryStore struct {
	mutex     sync.RWMutex
	campaigns []domain.Campaign
	reports   []domain.Report
	nextID    int64
	logger    *logger.Logger
}

func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{nextID: 1, logger: log}
}

func (s *MemoryStore) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	campaign.ID = s.nextID
	s.nextID++
	campaign.CreatedAt = time.Now().UTC()
	s.campaigns = append(s.campaigns, *campaign)

	s.logger.WithContext(ctx).WithField("campaign_id", campaign.ID).Info("Stored campaign in memory")
	return nil
}

func (s *MemoryStore) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.Campaign, len(s.campaigns))
	copy(out, s.campaigns)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, c := range s.campaigns {
		if c.ID == id {
			campaign := c
			return &campaign, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateReport(ctx context.Context, report *domain.Report) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	report.ID = s.nextID
	s.nextID++
	report.GeneratedAt = time.Now().UTC()
	s.reports = append(s.reports, *report)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":   report.ID,
		"campaign_id": report.CampaignID,
	}).Info("Stored report in memory")
	return nil
}

func (s *MemoryStore) ListReports(ctx context.Context) ([]domain.Report, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.Report, len(s.reports))
	copy(out, s.reports)
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (s *MemoryStore) ListReportsByCampaign(ctx context.Context, campaignID int64) ([]domain.Report, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []domain.Report
	for _, r := range s.reports {
		if r.CampaignID == campaignID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

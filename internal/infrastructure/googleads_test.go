package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"marketgo/internal/domain"
	"marketgo/pkg/config"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared across the package; promauto registers against the default
// registry and must only run once per test binary.
var (
	testMetrics = metrics.New()
	testLogger  = logger.New("error")
)

type googleAdsFixture struct {
	server *httptest.Server

	mu         sync.Mutex
	queries    []string
	mutates    []string
	failSearch bool
}

func (f *googleAdsFixture) handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/token":
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})

	case strings.HasSuffix(r.URL.Path, "googleAds:search"):
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		json.Unmarshal(body, &req)

		f.mu.Lock()
		f.queries = append(f.queries, req.Query)
		fail := f.failSearch
		f.mu.Unlock()

		if strings.Contains(req.Query, "FROM customer") {
			w.Write([]byte(`{"results":[{"customer":{"id":"1234567890","descriptiveName":"Acme Corp","currencyCode":"USD","timeZone":"America/New_York","status":"ENABLED"}}]}`))
			return
		}
		if fail {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		if strings.Contains(req.Query, "metrics.impressions") {
			w.Write([]byte(`{"results":[
				{"campaign":{"id":"101","name":"Search Brand"},"metrics":{"impressions":"10000","clicks":"250","costMicros":"500000000","conversions":"25","ctr":"0.025","averageCpc":"2000000","conversionsFromInteractionsRate":"0.1"}}
			]}`))
			return
		}
		w.Write([]byte(`{"results":[
			{"campaign":{"id":"102","name":"Zeta Launch","status":"PAUSED","advertisingChannelType":"SEARCH","startDate":"2026-01-01","endDate":"2026-12-31"}},
			{"campaign":{"id":"101","name":"Alpha Brand","status":"ENABLED","advertisingChannelType":"SEARCH","startDate":"2026-01-01","endDate":"2026-12-31"}}
		]}`))

	case strings.HasSuffix(r.URL.Path, "campaignBudgets:mutate"):
		f.mu.Lock()
		f.mutates = append(f.mutates, "budget")
		f.mu.Unlock()
		w.Write([]byte(`{"results":[{"resourceName":"customers/1234567890/campaignBudgets/888"}]}`))

	case strings.HasSuffix(r.URL.Path, "campaigns:mutate"):
		f.mu.Lock()
		f.mutates = append(f.mutates, "campaign")
		f.mu.Unlock()
		w.Write([]byte(`{"results":[{"resourceName":"customers/1234567890/campaigns/777"}]}`))

	default:
		http.NotFound(w, r)
	}
}

func newGoogleAdsFixture(t *testing.T) (*googleAdsFixture, *GoogleAdsAdapter) {
	t.Helper()

	f := &googleAdsFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(f.server.Close)

	creds := config.GoogleAdsCredentials{
		DeveloperToken: "dev-token",
		ClientID:       "client",
		ClientSecret:   "secret",
		RefreshToken:   "refresh",
		CustomerID:     "1234567890",
		APIBaseURL:     f.server.URL,
		TokenURL:       f.server.URL + "/token",
	}
	adapter := NewGoogleAdsAdapter(creds, 5*time.Second, 100, testLogger, testMetrics)
	return f, adapter
}

func TestGoogleAdsDisconnectedWithoutCredentials(t *testing.T) {
	adapter := NewGoogleAdsAdapter(config.GoogleAdsCredentials{}, time.Second, 100, testLogger, testMetrics)
	ctx := context.Background()

	assert.False(t, adapter.IsConnected())
	assert.Empty(t, adapter.AccountID())
	assert.Empty(t, adapter.ListCampaigns(ctx))
	assert.Empty(t, adapter.GetPerformance(ctx, "", 30).Campaigns)
	assert.Equal(t, "", adapter.CreateCampaign(ctx, domain.CampaignSpec{Name: "X"}))
	assert.False(t, adapter.UpdateBudget(ctx, "1", 100))

	_, ok := adapter.AccountInfo(ctx)
	assert.False(t, ok)
}

func TestGoogleAdsConnects(t *testing.T) {
	_, adapter := newGoogleAdsFixture(t)

	assert.True(t, adapter.IsConnected())
	assert.Equal(t, "1234567890", adapter.AccountID())

	info, ok := adapter.AccountInfo(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", info.Name)
	assert.Equal(t, "USD", info.Currency)
	assert.Equal(t, domain.PlatformGoogleAds, info.Platform)
}

func TestGoogleAdsListCampaignsSorted(t *testing.T) {
	_, adapter := newGoogleAdsFixture(t)

	campaigns := adapter.ListCampaigns(context.Background())

	require.Len(t, campaigns, 2)
	assert.Equal(t, "Alpha Brand", campaigns[0].Name)
	assert.Equal(t, "Zeta Launch", campaigns[1].Name)
	assert.Equal(t, "101", campaigns[0].ID)
	assert.Equal(t, "ENABLED", campaigns[0].Status)
	assert.Equal(t, domain.PlatformGoogleAds, campaigns[0].Platform)
}

func TestGoogleAdsPerformanceUnitConversion(t *testing.T) {
	_, adapter := newGoogleAdsFixture(t)

	report := adapter.GetPerformance(context.Background(), "", 30)

	require.Contains(t, report.Campaigns, "101")
	row := report.Campaigns["101"]
	assert.Equal(t, int64(10000), row.Impressions)
	assert.Equal(t, int64(250), row.Clicks)
	assert.InDelta(t, 500.0, row.Cost, 0.0001)
	assert.InDelta(t, 2.5, row.CTR, 0.0001)
	assert.InDelta(t, 2.0, row.CPC, 0.0001)
	assert.InDelta(t, 10.0, row.ConversionRate, 0.0001)

	// Summary is recomputed from the converted totals.
	assert.Equal(t, int64(10000), report.Summary.Impressions)
	assert.InDelta(t, 2.5, report.Summary.CTR, 0.0001)
	assert.InDelta(t, 2.0, report.Summary.CPC, 0.0001)
}

func TestGoogleAdsPerformanceDateWindow(t *testing.T) {
	f, adapter := newGoogleAdsFixture(t)
	adapter.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}

	report := adapter.GetPerformance(context.Background(), "", 7)

	assert.Equal(t, "2026-08-25", report.DateRange.StartDate)
	assert.Equal(t, "2026-09-01", report.DateRange.EndDate)

	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.queries[len(f.queries)-1]
	assert.Contains(t, last, "BETWEEN '2026-08-25' AND '2026-09-01'")
}

func TestGoogleAdsPerformanceScopedToCampaign(t *testing.T) {
	f, adapter := newGoogleAdsFixture(t)

	adapter.GetPerformance(context.Background(), "101", 30)

	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.queries[len(f.queries)-1]
	assert.Contains(t, last, "campaign.id = 101")
}

func TestGoogleAdsPerformanceRemoteError(t *testing.T) {
	f, adapter := newGoogleAdsFixture(t)
	f.mu.Lock()
	f.failSearch = true
	f.mu.Unlock()

	report := adapter.GetPerformance(context.Background(), "", 30)

	assert.Nil(t, report.Campaigns)
	assert.Zero(t, report.Summary.Impressions)
}

func TestGoogleAdsCreateCampaignBudgetFirst(t *testing.T) {
	f, adapter := newGoogleAdsFixture(t)

	id := adapter.CreateCampaign(context.Background(), domain.CampaignSpec{
		Name:        "New Launch",
		DailyBudget: 50,
	})

	assert.Equal(t, "777", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.mutates, 2)
	assert.Equal(t, []string{"budget", "campaign"}, f.mutates)
}

func TestGoogleAdsBudgetAndStatusSemantics(t *testing.T) {
	_, adapter := newGoogleAdsFixture(t)
	ctx := context.Background()

	// Budget updates are acknowledged without a remote mutation.
	assert.True(t, adapter.UpdateBudget(ctx, "101", 75))

	// Pause and resume are unsupported on this platform.
	assert.False(t, adapter.PauseCampaign(ctx, "101"))
	assert.False(t, adapter.ResumeCampaign(ctx, "101"))
}

func TestGoogleAdsReconfigure(t *testing.T) {
	f, _ := newGoogleAdsFixture(t)

	adapter := NewGoogleAdsAdapter(config.GoogleAdsCredentials{}, time.Second, 100, testLogger, testMetrics)
	require.False(t, adapter.IsConnected())

	adapter.Reconfigure(config.GoogleAdsCredentials{
		DeveloperToken: "dev-token",
		ClientID:       "client",
		ClientSecret:   "secret",
		RefreshToken:   "refresh",
		CustomerID:     "1234567890",
		APIBaseURL:     f.server.URL,
		TokenURL:       f.server.URL + "/token",
	})

	assert.True(t, adapter.IsConnected())
	assert.Equal(t, "1234567890", adapter.AccountID())
}

// Exercises concurrent credential swaps against in-flight fetches.
// Meaningful under the race detector: every credential field read on the
// request path must be snapshotted under the adapter lock.
func TestGoogleAdsReconfigureDuringFetch(t *testing.T) {
	f, adapter := newGoogleAdsFixture(t)

	creds := config.GoogleAdsCredentials{
		DeveloperToken: "dev-token",
		ClientID:       "client",
		ClientSecret:   "secret",
		RefreshToken:   "refresh",
		CustomerID:     "1234567890",
		APIBaseURL:     f.server.URL,
		TokenURL:       f.server.URL + "/token",
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			adapter.Reconfigure(creds)
		}
	}()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		report := adapter.GetPerformance(ctx, "", 7)
		assert.Equal(t, domain.PlatformGoogleAds, report.Platform)
	}
	<-done

	assert.True(t, adapter.IsConnected())
	assert.Equal(t, "1234567890", adapter.AccountID())
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercount/insights-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "insights.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProfile(t *testing.T, s *SQLiteStore, id string) *model.RestaurantProfile {
	t.Helper()
	saved, err := s.SaveProfile(context.Background(), model.RestaurantProfile{
		ID:      id,
		Name:    "Harbor & Vine",
		Type:    "casual dining",
		Concept: "neighborhood wine bar",
		Seating: 80,
	})
	require.NoError(t, err)
	return saved
}

func insertDailySale(t *testing.T, s *SQLiteStore, restaurantID string, date time.Time, revenue float64, orders int) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO daily_sales (id, restaurant_id, date, revenue, orders) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), restaurantID, date, revenue, orders,
	)
	require.NoError(t, err)
}

func insertCategorySale(t *testing.T, s *SQLiteStore, restaurantID string, date time.Time, category string, revenue float64) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO category_sales (id, restaurant_id, date, category, revenue) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), restaurantID, date, category, revenue,
	)
	require.NoError(t, err)
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	got, err := s.GetProfile(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "Harbor & Vine", got.Name)
	assert.Equal(t, "neighborhood wine bar", got.Concept)
	assert.Equal(t, 80, got.Seating)
	assert.Nil(t, got.Facts)
	assert.Nil(t, got.FactsUpdatedAt)
}

func TestGetProfileNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProfile(context.Background(), "r-missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSaveProfileGeneratesID(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveProfile(context.Background(), model.RestaurantProfile{Name: "No ID"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestSaveProfileUpdatePreservesConnections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")
	require.NoError(t, s.SetConnection(ctx, "r-1", "pos", true))

	// Re-saving the profile blob must not clobber connection flags.
	_, err := s.SaveProfile(ctx, model.RestaurantProfile{ID: "r-1", Name: "Renamed"})
	require.NoError(t, err)

	conns, err := s.GetConnections(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, conns.Connected("pos"))

	got, err := s.GetProfile(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestConnections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	conns, err := s.GetConnections(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, conns.Connected("pos"))

	require.NoError(t, s.SetConnection(ctx, "r-1", "pos", true))
	require.NoError(t, s.SetConnection(ctx, "r-1", "weather", true))
	require.NoError(t, s.SetConnection(ctx, "r-1", "weather", false))

	conns, err = s.GetConnections(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, conns.Connected("pos"))
	assert.False(t, conns.Connected("weather"))
}

func TestSetConnectionUnknownRestaurant(t *testing.T) {
	s := newTestStore(t)

	err := s.SetConnection(context.Background(), "r-missing", "pos", true)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestUpdateFactsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	facts := model.DataFacts{
		AvgDailyRevenue: 4100.25,
		TotalOrders:     3200,
		PeakDays:        []string{"Saturday", "Friday"},
		RevenueMix:      map[string]int{"food": 70, "wine": 30},
	}
	updatedAt := time.Date(2025, time.June, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateFacts(ctx, "r-1", facts, updatedAt))

	got, err := s.GetProfile(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	assert.Equal(t, facts, *got.Facts)
	require.NotNil(t, got.FactsUpdatedAt)
	assert.Equal(t, updatedAt, got.FactsUpdatedAt.UTC())

	err = s.UpdateFacts(ctx, "r-missing", facts, updatedAt)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestListDailySalesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	in := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	insertDailySale(t, s, "r-1", in, 1500, 40)
	insertDailySale(t, s, "r-1", before, 900, 20)
	insertDailySale(t, s, "r-other", in, 5000, 100)

	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	sales, err := s.ListDailySales(ctx, "r-1", from, to)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.InDelta(t, 1500, sales[0].Revenue, 0.001)
	assert.Equal(t, 40, sales[0].Orders)
}

// One summary row per restaurant and date; duplicates would skew the daily
// averages the fact pipeline derives.
func TestDailySalesUniquePerDate(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, "r-1")

	date := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	insertDailySale(t, s, "r-1", date, 1500, 40)

	_, err := s.db.Exec(
		`INSERT INTO daily_sales (id, restaurant_id, date, revenue, orders) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), "r-1", date, 900, 20,
	)
	require.Error(t, err)

	// A different restaurant on the same date is fine.
	insertDailySale(t, s, "r-other", date, 900, 20)
}

func TestCategorySalesUniquePerDateAndCategory(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, "r-1")

	date := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	insertCategorySale(t, s, "r-1", date, model.CategoryFood, 700)

	_, err := s.db.Exec(
		`INSERT INTO category_sales (id, restaurant_id, date, category, revenue) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), "r-1", date, model.CategoryFood, 100,
	)
	require.Error(t, err)

	// Same date, different category is fine.
	insertCategorySale(t, s, "r-1", date, model.CategoryWine, 300)
}

func TestListCategorySales(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	date := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	insertCategorySale(t, s, "r-1", date, model.CategoryFood, 700)
	insertCategorySale(t, s, "r-1", date, model.CategoryWine, 300)

	from := date.AddDate(0, 0, -1)
	to := date.AddDate(0, 0, 1)
	sales, err := s.ListCategorySales(ctx, "r-1", from, to)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, model.CategoryFood, sales[0].Category)
}

func TestInsightLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	created, err := s.CreateInsight(ctx, model.Insight{
		RestaurantID:    "r-1",
		Title:           "Weekend staffing",
		Content:         "Saturdays outsell Wednesdays 3x.",
		KeyPoints:       []string{"a", "b", "c"},
		Recommendations: []string{"add a Saturday shift"},
		DataQuality:     "good",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.InsightActive, created.Status)

	got, err := s.GetInsight(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, []string{"a", "b", "c"}, got.KeyPoints)
	assert.Equal(t, []string{"add a Saturday shift"}, got.Recommendations)

	require.NoError(t, s.UpdateInsightStatus(ctx, created.ID, model.InsightPinned))
	got, err = s.GetInsight(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InsightPinned, got.Status)

	err = s.UpdateInsightStatus(ctx, "i-missing", model.InsightHidden)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestListInsightsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.CreateInsight(ctx, model.Insight{
			RestaurantID: "r-1",
			Title:        "insight",
			Content:      "body",
			GeneratedAt:  base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	insights, err := s.ListInsights(ctx, "r-1", 2)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.True(t, insights[0].GeneratedAt.After(insights[1].GeneratedAt))
}

func TestMarkInsightsStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	active, err := s.CreateInsight(ctx, model.Insight{RestaurantID: "r-1", Title: "t", Content: "c"})
	require.NoError(t, err)
	pinned, err := s.CreateInsight(ctx, model.Insight{RestaurantID: "r-1", Title: "t", Content: "c", Status: model.InsightPinned})
	require.NoError(t, err)

	n, err := s.MarkInsightsStale(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetInsight(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InsightStale, got.Status)

	got, err = s.GetInsight(ctx, pinned.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InsightPinned, got.Status)
}

func TestFeedbackRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "r-1")

	insight, err := s.CreateInsight(ctx, model.Insight{RestaurantID: "r-1", Title: "t", Content: "c"})
	require.NoError(t, err)

	created, err := s.CreateFeedback(ctx, model.FeedbackRecord{
		InsightID:    insight.ID,
		RestaurantID: "r-1",
		Rating:       model.RatingIncorrect,
		Comment:      "brunch is our best margin",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	records, err := s.ListFeedback(ctx, "r-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.RatingIncorrect, records[0].Rating)
	assert.Equal(t, "brunch is our best margin", records[0].Comment)
}

// Package store defines the persistence interface for profiles, sales
// history, insights, and feedback, with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/covercount/insights-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// that can degrade gracefully check it with eris.Is.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence operations consumed by the insights engine.
type Store interface {
	// Profiles and connection flags
	GetProfile(ctx context.Context, restaurantID string) (*model.RestaurantProfile, error)
	SaveProfile(ctx context.Context, profile model.RestaurantProfile) (*model.RestaurantProfile, error)
	GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error)
	SetConnection(ctx context.Context, restaurantID, layerID string, connected bool) error
	UpdateFacts(ctx context.Context, restaurantID string, facts model.DataFacts, updatedAt time.Time) error

	// Transaction summaries (written externally; read-only here)
	ListDailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.DailySales, error)
	ListCategorySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.CategorySales, error)

	// Insights
	CreateInsight(ctx context.Context, insight model.Insight) (*model.Insight, error)
	GetInsight(ctx context.Context, insightID string) (*model.Insight, error)
	ListInsights(ctx context.Context, restaurantID string, limit int) ([]model.Insight, error)
	UpdateInsightStatus(ctx context.Context, insightID string, status model.InsightStatus) error
	MarkInsightsStale(ctx context.Context, restaurantID string) (int, error)

	// Feedback (append-only)
	CreateFeedback(ctx context.Context, record model.FeedbackRecord) (*model.FeedbackRecord, error)
	ListFeedback(ctx context.Context, restaurantID string, limit int) ([]model.FeedbackRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

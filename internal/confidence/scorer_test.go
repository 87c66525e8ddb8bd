package confidence

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/store"
)

func TestFromConnectionsScores(t *testing.T) {
	tests := []struct {
		name      string
		flags     model.ConnectionState
		wantScore int
		wantLevel model.ConfidenceLevel
		wantHedge model.HedgeLevel
		wantNext  string
	}{
		{
			name:      "nothing connected",
			flags:     nil,
			wantScore: 0,
			wantLevel: model.LevelBasic,
			wantHedge: model.HedgeHigh,
			wantNext:  "Point of Sale",
		},
		{
			name:      "pos only",
			flags:     model.ConnectionState{"pos": true},
			wantScore: 40,
			wantLevel: model.LevelGrowing,
			wantHedge: model.HedgeMedium,
			wantNext:  "Delivery Platforms",
		},
		{
			name:      "pos and delivery",
			flags:     model.ConnectionState{"pos": true, "delivery": true},
			wantScore: 60,
			wantLevel: model.LevelStrong,
			wantHedge: model.HedgeLow,
			wantNext:  "Reservations",
		},
		{
			name:      "everything but weather",
			flags:     model.ConnectionState{"pos": true, "delivery": true, "reservations": true, "labor": true},
			wantScore: 90,
			wantLevel: model.LevelComplete,
			wantHedge: model.HedgeNone,
			wantNext:  "Local Weather",
		},
		{
			name:      "everything connected",
			flags:     model.ConnectionState{"pos": true, "delivery": true, "reservations": true, "labor": true, "weather": true},
			wantScore: 100,
			wantLevel: model.LevelComplete,
			wantHedge: model.HedgeNone,
			wantNext:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromConnections(tt.flags)
			assert.Equal(t, tt.wantScore, c.Score)
			assert.Equal(t, tt.wantLevel, c.Level)
			assert.Equal(t, tt.wantHedge, c.HedgeLevel)
			assert.Equal(t, tt.wantNext, c.NextRecommended)
		})
	}
}

// Connecting any additional layer never lowers the score.
func TestFromConnectionsMonotonic(t *testing.T) {
	base := model.ConnectionState{"pos": true, "weather": true}
	baseline := FromConnections(base).Score

	for _, extra := range []string{"delivery", "reservations", "labor"} {
		flags := model.ConnectionState{"pos": true, "weather": true, extra: true}
		assert.GreaterOrEqual(t, FromConnections(flags).Score, baseline, "adding %s", extra)
	}
}

// Ties on weight recommend the layer declared first in the catalog.
func TestNextRecommendedTieBreak(t *testing.T) {
	// reservations and labor both weigh 15; with everything heavier connected,
	// reservations is declared first and wins.
	c := FromConnections(model.ConnectionState{"pos": true, "delivery": true})
	assert.Equal(t, "Reservations", c.NextRecommended)
}

func TestDisclaimerGrammar(t *testing.T) {
	tests := []struct {
		name  string
		flags model.ConnectionState
		want  string
	}{
		{
			name:  "no sources",
			flags: nil,
			want:  "Connect your first data source to unlock personalized insights.",
		},
		{
			name:  "single source uses only",
			flags: model.ConnectionState{"pos": true},
			want:  "Based on Point of Sale only. Connect Delivery Platforms to improve accuracy.",
		},
		{
			name:  "two sources join with and",
			flags: model.ConnectionState{"pos": true, "delivery": true},
			want:  "Based on Point of Sale and Delivery Platforms. Connect Reservations to improve accuracy.",
		},
		{
			name:  "full house drops the recommendation",
			flags: model.ConnectionState{"pos": true, "delivery": true, "reservations": true, "labor": true, "weather": true},
			want:  "Based on Point of Sale, Delivery Platforms, Reservations, Labor & Scheduling and Local Weather.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromConnections(tt.flags).Disclaimer)
		})
	}
}

type stubConnections struct {
	flags model.ConnectionState
	err   error
}

func (s *stubConnections) GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error) {
	return s.flags, s.err
}

func TestScoreUnknownRestaurant(t *testing.T) {
	scorer := NewScorer(&stubConnections{err: store.ErrNotFound})

	c, err := scorer.Score(context.Background(), "r-unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, model.LevelBasic, c.Level)
	assert.Equal(t, "Restaurant not found. Connect your first data source to begin.", c.Disclaimer)
}

func TestScorePropagatesStoreErrors(t *testing.T) {
	scorer := NewScorer(&stubConnections{err: eris.New("connection refused")})

	_, err := scorer.Score(context.Background(), "r-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read connections")
}

func TestScoreReadsFlags(t *testing.T) {
	scorer := NewScorer(&stubConnections{flags: model.ConnectionState{"pos": true}})

	c, err := scorer.Score(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, 40, c.Score)
	assert.Equal(t, []string{"pos"}, c.ConnectedLayers)
	assert.Equal(t, []string{"delivery", "reservations", "labor", "weather"}, c.MissingLayers)
}

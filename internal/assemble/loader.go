package assemble

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/store"
)

// HistoryReader reads the persisted inputs to context assembly.
type HistoryReader interface {
	GetProfile(ctx context.Context, restaurantID string) (*model.RestaurantProfile, error)
	ListInsights(ctx context.Context, restaurantID string, limit int) ([]model.Insight, error)
	ListFeedback(ctx context.Context, restaurantID string, limit int) ([]model.FeedbackRecord, error)
}

// Loader fetches a consistent per-call snapshot of profile, prior insights,
// and feedback. Each generation call loads its own snapshot once; nothing is
// refreshed mid-call.
type Loader struct {
	reader HistoryReader
}

// NewLoader creates a Loader over the given reader.
func NewLoader(reader HistoryReader) *Loader {
	return &Loader{reader: reader}
}

// Snapshot loads profile and history in parallel. A missing profile degrades
// to a nil profile; history read failures degrade to empty history. Only a
// non-NotFound profile error is fatal.
func (l *Loader) Snapshot(ctx context.Context, restaurantID string) (Input, error) {
	var in Input

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := l.reader.GetProfile(gCtx, restaurantID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				zap.L().Debug("assemble: profile not found",
					zap.String("restaurant_id", restaurantID),
				)
				return nil
			}
			return eris.Wrap(err, "assemble: load profile")
		}
		in.Profile = profile
		in.Facts = profile.Facts
		return nil
	})

	g.Go(func() error {
		insights, err := l.reader.ListInsights(gCtx, restaurantID, MaxPriorInsights)
		if err != nil {
			zap.L().Warn("assemble: loading prior insights failed",
				zap.String("restaurant_id", restaurantID),
				zap.Error(err),
			)
			return nil
		}
		in.Insights = insights
		return nil
	})

	g.Go(func() error {
		feedback, err := l.reader.ListFeedback(gCtx, restaurantID, MaxPriorFeedback)
		if err != nil {
			zap.L().Warn("assemble: loading feedback failed",
				zap.String("restaurant_id", restaurantID),
				zap.Error(err),
			)
			return nil
		}
		in.Feedback = feedback
		return nil
	})

	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

package generate

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/model"
)

// RecordFeedback appends a feedback record for an insight and applies the
// resulting status transition. The append always happens; the transition is
// skipped when the rating leaves the status unchanged.
func (o *Orchestrator) RecordFeedback(ctx context.Context, insightID string, rating model.FeedbackRating, comment string) (*model.FeedbackRecord, error) {
	insight, err := o.store.GetInsight(ctx, insightID)
	if err != nil {
		return nil, eris.Wrapf(err, "generate: load insight %s", insightID)
	}

	next := model.TransitionStatus(insight.Status, rating)
	if next != insight.Status {
		if err := o.store.UpdateInsightStatus(ctx, insightID, next); err != nil {
			return nil, eris.Wrapf(err, "generate: transition insight %s to %s", insightID, next)
		}
		zap.L().Info("generate: insight status changed",
			zap.String("insight_id", insightID),
			zap.String("from", string(insight.Status)),
			zap.String("to", string(next)),
			zap.String("rating", string(rating)),
		)
	}

	record := model.FeedbackRecord{
		ID:           uuid.New().String(),
		InsightID:    insightID,
		RestaurantID: insight.RestaurantID,
		Rating:       rating,
		Comment:      comment,
		CreatedAt:    o.now().UTC(),
	}
	created, err := o.store.CreateFeedback(ctx, record)
	if err != nil {
		return nil, eris.Wrap(err, "generate: create feedback")
	}
	return created, nil
}

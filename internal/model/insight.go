package model

import "time"

// InsightStatus is the lifecycle state of a generated insight. Insights are
// immutable once created except for these status transitions.
type InsightStatus string

const (
	InsightActive   InsightStatus = "active"
	InsightPinned   InsightStatus = "pinned"
	InsightHidden   InsightStatus = "hidden"
	InsightStale    InsightStatus = "stale"
	InsightArchived InsightStatus = "archived"
)

// FeedbackRating is the rating attached to an insight by its consumer.
type FeedbackRating string

const (
	RatingHelpful    FeedbackRating = "helpful"
	RatingNotHelpful FeedbackRating = "not_helpful"
	RatingIncorrect  FeedbackRating = "incorrect"
)

// Negative reports whether the rating rejects the insight's content.
func (r FeedbackRating) Negative() bool {
	return r == RatingNotHelpful || r == RatingIncorrect
}

// TransitionStatus returns the status an insight moves to when it receives
// the given rating. A helpful rating pins active or stale insights and is a
// no-op on an already-pinned one. A negative rating hides anything not
// archived. Unknown ratings leave the status unchanged.
func TransitionStatus(status InsightStatus, rating FeedbackRating) InsightStatus {
	switch rating {
	case RatingHelpful:
		if status == InsightActive || status == InsightStale {
			return InsightPinned
		}
		return status
	case RatingNotHelpful, RatingIncorrect:
		if status == InsightArchived {
			return status
		}
		return InsightHidden
	default:
		return status
	}
}

// Insight is a generated, persisted narrative unit with supporting key points
// and recommendations.
type Insight struct {
	ID              string        `json:"id"`
	RestaurantID    string        `json:"restaurant_id"`
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	KeyPoints       []string      `json:"key_points,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	DataQuality     string        `json:"data_quality"`
	Status          InsightStatus `json:"status"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

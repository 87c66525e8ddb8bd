package model

import "time"

// FeedbackRecord is an append-only rating attached to a previously generated
// insight. Records are never deleted or updated; future generations read them
// to steer away from rejected content.
type FeedbackRecord struct {
	ID           string         `json:"id"`
	InsightID    string         `json:"insight_id"`
	RestaurantID string         `json:"restaurant_id"`
	Rating       FeedbackRating `json:"rating"`
	Comment      string         `json:"comment,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

package model

import "time"

// RestaurantProfile holds the static and slow-changing attributes of a
// restaurant, the per-layer connection flags, and the embedded derived facts.
type RestaurantProfile struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type,omitempty"`
	Concept           string          `json:"concept,omitempty"`
	Cuisine           string          `json:"cuisine,omitempty"`
	PriceRange        string          `json:"price_range,omitempty"`
	Seating           int             `json:"seating,omitempty"`
	Neighborhood      string          `json:"neighborhood,omitempty"`
	TargetDemographic string          `json:"target_demographic,omitempty"`
	OperatorContext   string          `json:"operator_context,omitempty"`
	Connections       ConnectionState `json:"connections,omitempty"`
	Facts             *DataFacts      `json:"facts,omitempty"`
	FactsUpdatedAt    *time.Time      `json:"facts_updated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

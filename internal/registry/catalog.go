// Package registry holds the static catalog of connectable data layers.
package registry

import "github.com/covercount/insights-cli/internal/model"

// catalog is the fixed set of data layers, in declaration order. Weights sum
// to exactly 100 so a connected-weight sum is always a valid 0-100 score.
// Declaration order breaks ties when recommending the next layer to connect.
var catalog = []model.DataLayer{
	{
		ID:          "pos",
		Label:       "Point of Sale",
		Weight:      40,
		Description: "Itemized sales, checks, and order volume from the POS system",
		EnablePath:  "/settings/integrations/pos",
	},
	{
		ID:          "delivery",
		Label:       "Delivery Platforms",
		Weight:      20,
		Description: "Order and revenue data from third-party delivery platforms",
		EnablePath:  "/settings/integrations/delivery",
	},
	{
		ID:          "reservations",
		Label:       "Reservations",
		Weight:      15,
		Description: "Covers, no-shows, and booking lead times from the reservation book",
		EnablePath:  "/settings/integrations/reservations",
	},
	{
		ID:          "labor",
		Label:       "Labor & Scheduling",
		Weight:      15,
		Description: "Shift schedules and labor cost from the scheduling system",
		EnablePath:  "/settings/integrations/labor",
	},
	{
		ID:          "weather",
		Label:       "Local Weather",
		Weight:      10,
		Description: "Historical weather for correlating traffic with conditions",
		EnablePath:  "/settings/integrations/weather",
	},
}

// Layers returns the full catalog in declaration order. Callers must not
// mutate the returned slice.
func Layers() []model.DataLayer {
	return catalog
}

// Get returns the layer with the given ID, or false when unknown.
func Get(id string) (model.DataLayer, bool) {
	for _, l := range catalog {
		if l.ID == id {
			return l, true
		}
	}
	return model.DataLayer{}, false
}

// TotalWeight returns the sum of all layer weights. It is always 100 for a
// valid catalog; tests enforce the invariant.
func TotalWeight() int {
	total := 0
	for _, l := range catalog {
		total += l.Weight
	}
	return total
}

// Package confidence scores how complete a restaurant's data picture is and
// derives the qualifying language any generated narrative must use.
package confidence

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/registry"
	"github.com/covercount/insights-cli/internal/store"
)

// ConnectionReader reads per-restaurant connection flags.
type ConnectionReader interface {
	GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error)
}

// Scorer computes Confidence records from connection flags and the layer
// catalog. It has no side effects and never caches results.
type Scorer struct {
	conns ConnectionReader
}

// NewScorer creates a Scorer reading flags from the given source.
func NewScorer(conns ConnectionReader) *Scorer {
	return &Scorer{conns: conns}
}

const (
	noSourcesDisclaimer = "Connect your first data source to unlock personalized insights."
	notFoundDisclaimer  = "Restaurant not found. Connect your first data source to begin."
)

// Score reads the restaurant's connection flags and produces a fresh
// Confidence. An unknown restaurant yields the fully-unconnected default with
// a not-found disclaimer rather than an error.
func (s *Scorer) Score(ctx context.Context, restaurantID string) (model.Confidence, error) {
	flags, err := s.conns.GetConnections(ctx, restaurantID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			zap.L().Debug("confidence: restaurant not found, returning default",
				zap.String("restaurant_id", restaurantID),
			)
			c := FromConnections(nil)
			c.Disclaimer = notFoundDisclaimer
			return c, nil
		}
		return model.Confidence{}, eris.Wrap(err, "confidence: read connections")
	}
	return FromConnections(flags), nil
}

// FromConnections computes a Confidence from explicit connection flags. It is
// the pure core of the scorer; Score only adds the store read.
func FromConnections(flags model.ConnectionState) model.Confidence {
	var (
		score     int
		connected []string
		missing   []string
		next      model.DataLayer
		hasNext   bool
	)

	for _, layer := range registry.Layers() {
		if flags.Connected(layer.ID) {
			score += layer.Weight
			connected = append(connected, layer.ID)
			continue
		}
		missing = append(missing, layer.ID)
		// Highest weight wins; strict > keeps declaration order on ties.
		if !hasNext || layer.Weight > next.Weight {
			next = layer
			hasNext = true
		}
	}

	c := model.Confidence{
		Score:           score,
		Level:           model.LevelForScore(score),
		ConnectedLayers: connected,
		MissingLayers:   missing,
		HedgeLevel:      model.HedgeForScore(score),
	}
	if hasNext {
		c.NextRecommended = next.Label
	}
	c.Disclaimer = disclaimer(connected, c.NextRecommended)
	return c
}

// disclaimer builds the human-readable qualifier naming every connected
// source. The join is comma-free before the final "and"; the recommendation
// clause is omitted when nothing is missing.
func disclaimer(connectedIDs []string, nextLabel string) string {
	if len(connectedIDs) == 0 {
		return noSourcesDisclaimer
	}

	labels := make([]string, 0, len(connectedIDs))
	for _, id := range connectedIDs {
		if layer, ok := registry.Get(id); ok {
			labels = append(labels, layer.Label)
		}
	}

	var b strings.Builder
	b.WriteString("Based on ")
	switch len(labels) {
	case 1:
		b.WriteString(labels[0])
		b.WriteString(" only.")
	default:
		b.WriteString(strings.Join(labels[:len(labels)-1], ", "))
		b.WriteString(" and ")
		b.WriteString(labels[len(labels)-1])
		b.WriteString(".")
	}

	if nextLabel != "" {
		b.WriteString(" Connect ")
		b.WriteString(nextLabel)
		b.WriteString(" to improve accuracy.")
	}
	return b.String()
}

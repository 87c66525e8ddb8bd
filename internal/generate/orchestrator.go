// Package generate orchestrates a single insight generation call: facts
// freshness, confidence scoring, context assembly, provider streaming, and
// persistence of the parsed result.
package generate

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/assemble"
	"github.com/covercount/insights-cli/internal/confidence"
	"github.com/covercount/insights-cli/internal/facts"
	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/store"
)

// Orchestrator drives the generation state machine. A call moves through
// connecting and streaming before reaching complete or error; there are no
// other terminal states, and nothing is persisted on the error path.
type Orchestrator struct {
	store       store.Store
	scorer      *confidence.Scorer
	pipeline    *facts.Pipeline
	loader      *assemble.Loader
	provider    Provider
	model       string
	maxTokens   int64
	factsMaxAge time.Duration
	now         func() time.Time
}

// Config carries the orchestrator's tunables.
type Config struct {
	Model        string
	MaxTokens    int64
	FactsMaxAge  time.Duration
	WindowMonths int
}

// NewOrchestrator wires an Orchestrator over its collaborators.
func NewOrchestrator(st store.Store, provider Provider, cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:       st,
		scorer:      confidence.NewScorer(st),
		pipeline:    facts.NewPipeline(st, st, facts.WithWindowMonths(cfg.WindowMonths)),
		loader:      assemble.NewLoader(st),
		provider:    provider,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		factsMaxAge: cfg.FactsMaxAge,
		now:         time.Now,
	}
	if o.factsMaxAge <= 0 {
		o.factsMaxAge = facts.DefaultMaxAge
	}
	return o
}

// GenerateRequest identifies the restaurant and carries optional caller
// supplied current-period summaries.
type GenerateRequest struct {
	RestaurantID string
	SalesSummary string
	CostSummary  string
}

// Stream delivers generation events to one consumer. It is not safe for
// concurrent reads.
type Stream struct {
	events  chan Event
	cur     Event
	err     error
	insight *model.Insight
}

// Next blocks for the next event. It returns false when the stream is done.
func (s *Stream) Next() bool {
	e, ok := <-s.events
	if !ok {
		return false
	}
	s.cur = e
	return true
}

// Event returns the event read by the last successful Next.
func (s *Stream) Event() Event {
	return s.cur
}

// Err reports the terminal error, if any, after Next has returned false.
func (s *Stream) Err() error {
	return s.err
}

// Insight returns the persisted insight after a complete run, nil otherwise.
func (s *Stream) Insight() *model.Insight {
	return s.insight
}

// Generate starts a generation call and returns its event stream. The run
// executes on its own goroutine; cancelling ctx terminates it with an error
// event and nothing persisted.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) *Stream {
	s := &Stream{events: make(chan Event, 16)}
	go o.run(ctx, req, s)
	return s
}

func (o *Orchestrator) run(ctx context.Context, req GenerateRequest, s *Stream) {
	defer close(s.events)

	fail := func(err error, msg string) {
		s.err = err
		zap.L().Error("generate: "+msg,
			zap.String("restaurant_id", req.RestaurantID),
			zap.Error(err),
		)
		s.emit(ctx, errorEvent(msg+": "+err.Error()))
	}

	s.emit(ctx, statusEvent("Loading restaurant data"))
	snap, err := o.loader.Snapshot(ctx, req.RestaurantID)
	if err != nil {
		fail(err, "loading snapshot failed")
		return
	}
	snap.SalesSummary = req.SalesSummary
	snap.CostSummary = req.CostSummary

	// Facts older than the freshness horizon are recomputed synchronously
	// before assembly so the call sees one consistent snapshot.
	if snap.Profile != nil && !facts.Fresh(o.now(), snap.Profile.FactsUpdatedAt, o.factsMaxAge) {
		s.emit(ctx, statusEvent("Refreshing performance facts"))
		refreshed, err := o.pipeline.Refresh(ctx, req.RestaurantID)
		if err != nil {
			// Stale facts still beat no generation at all.
			zap.L().Warn("generate: facts refresh failed, continuing with stale facts",
				zap.String("restaurant_id", req.RestaurantID),
				zap.Error(err),
			)
		} else {
			snap.Facts = &refreshed
		}
	}

	s.emit(ctx, statusEvent("Scoring data confidence"))
	conf, err := o.scorer.Score(ctx, req.RestaurantID)
	if err != nil {
		fail(err, "scoring confidence failed")
		return
	}
	snap.Confidence = conf
	s.emit(ctx, confidenceEvent(conf))

	s.emit(ctx, statusEvent("Assembling context"))
	doc := assemble.BuildContext(snap)

	es, err := o.provider.Stream(ctx, Request{
		System:    assemble.SystemInstruction,
		Context:   doc,
		Model:     o.model,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		fail(err, "opening generation stream failed")
		return
	}
	defer es.Close()

	var text strings.Builder
	for es.Next() {
		ev := es.Event()
		if ev.Type == EventText {
			text.WriteString(ev.Text)
		}
		if ev.Type == EventError {
			s.err = eris.New(ev.Message)
			s.emit(ctx, ev)
			return
		}
		s.emit(ctx, ev)
	}
	if err := es.Err(); err != nil {
		fail(err, "generation stream failed")
		return
	}
	if err := ctx.Err(); err != nil {
		fail(err, "generation cancelled")
		return
	}

	insight, err := o.persist(ctx, req.RestaurantID, Parse(text.String()))
	if err != nil {
		fail(err, "persisting insight failed")
		return
	}
	s.insight = insight
	s.emit(ctx, insightsEvent([]model.Insight{*insight}))
}

// persist supersedes prior active insights and writes the new one. Stale
// marking is best effort; insight creation is not.
func (o *Orchestrator) persist(ctx context.Context, restaurantID string, out Outcome) (*model.Insight, error) {
	if out.Degraded {
		zap.L().Warn("generate: structured parse failed, storing raw text",
			zap.String("restaurant_id", restaurantID),
		)
	}

	if n, err := o.store.MarkInsightsStale(ctx, restaurantID); err != nil {
		zap.L().Warn("generate: marking prior insights stale failed",
			zap.String("restaurant_id", restaurantID),
			zap.Error(err),
		)
	} else if n > 0 {
		zap.L().Debug("generate: marked prior insights stale",
			zap.String("restaurant_id", restaurantID),
			zap.Int("count", n),
		)
	}

	content := out.Result.Summary
	if content == "" {
		content = out.Raw
	}
	insight := model.Insight{
		ID:              uuid.New().String(),
		RestaurantID:    restaurantID,
		Title:           out.Result.Title,
		Content:         content,
		KeyPoints:       out.Result.Insights,
		Recommendations: out.Result.Recommendations,
		DataQuality:     out.Result.DataQuality,
		Status:          model.InsightActive,
		GeneratedAt:     o.now().UTC(),
	}

	created, err := o.store.CreateInsight(ctx, insight)
	if err != nil {
		return nil, eris.Wrap(err, "generate: create insight")
	}
	return created, nil
}

// emit delivers an event unless the consumer has gone away.
func (s *Stream) emit(ctx context.Context, e Event) {
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}

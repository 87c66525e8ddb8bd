package generate

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/store"
)

// fakeStore is an in-memory store.Store for orchestrator tests.
type fakeStore struct {
	profiles map[string]*model.RestaurantProfile
	insights map[string]*model.Insight
	feedback []model.FeedbackRecord
	daily    []model.DailySales

	createInsightErr error
	markStaleErr     error
	updateStatusErr  error
	staleCalls       int
	factsUpdates     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*model.RestaurantProfile),
		insights: make(map[string]*model.Insight),
	}
}

func (f *fakeStore) GetProfile(ctx context.Context, restaurantID string) (*model.RestaurantProfile, error) {
	p, ok := f.profiles[restaurantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SaveProfile(ctx context.Context, profile model.RestaurantProfile) (*model.RestaurantProfile, error) {
	f.profiles[profile.ID] = &profile
	return &profile, nil
}

func (f *fakeStore) GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error) {
	p, ok := f.profiles[restaurantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Connections, nil
}

func (f *fakeStore) SetConnection(ctx context.Context, restaurantID, layerID string, connected bool) error {
	p, ok := f.profiles[restaurantID]
	if !ok {
		return store.ErrNotFound
	}
	if p.Connections == nil {
		p.Connections = model.ConnectionState{}
	}
	p.Connections[layerID] = connected
	return nil
}

func (f *fakeStore) UpdateFacts(ctx context.Context, restaurantID string, facts model.DataFacts, updatedAt time.Time) error {
	p, ok := f.profiles[restaurantID]
	if !ok {
		return store.ErrNotFound
	}
	p.Facts = &facts
	p.FactsUpdatedAt = &updatedAt
	f.factsUpdates++
	return nil
}

func (f *fakeStore) ListDailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.DailySales, error) {
	return f.daily, nil
}

func (f *fakeStore) ListCategorySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.CategorySales, error) {
	return nil, nil
}

func (f *fakeStore) CreateInsight(ctx context.Context, insight model.Insight) (*model.Insight, error) {
	if f.createInsightErr != nil {
		return nil, f.createInsightErr
	}
	f.insights[insight.ID] = &insight
	return &insight, nil
}

func (f *fakeStore) GetInsight(ctx context.Context, insightID string) (*model.Insight, error) {
	in, ok := f.insights[insightID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (f *fakeStore) ListInsights(ctx context.Context, restaurantID string, limit int) ([]model.Insight, error) {
	var out []model.Insight
	for _, in := range f.insights {
		if in.RestaurantID == restaurantID {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateInsightStatus(ctx context.Context, insightID string, status model.InsightStatus) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	in, ok := f.insights[insightID]
	if !ok {
		return store.ErrNotFound
	}
	in.Status = status
	return nil
}

func (f *fakeStore) MarkInsightsStale(ctx context.Context, restaurantID string) (int, error) {
	f.staleCalls++
	if f.markStaleErr != nil {
		return 0, f.markStaleErr
	}
	n := 0
	for _, in := range f.insights {
		if in.RestaurantID == restaurantID && in.Status == model.InsightActive {
			in.Status = model.InsightStale
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateFeedback(ctx context.Context, record model.FeedbackRecord) (*model.FeedbackRecord, error) {
	f.feedback = append(f.feedback, record)
	return &record, nil
}

func (f *fakeStore) ListFeedback(ctx context.Context, restaurantID string, limit int) ([]model.FeedbackRecord, error) {
	var out []model.FeedbackRecord
	for _, r := range f.feedback {
		if r.RestaurantID == restaurantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// fakeProvider replays a scripted event sequence.
type fakeProvider struct {
	events  []Event
	err     error
	openErr error
	lastReq Request
}

func (p *fakeProvider) Stream(ctx context.Context, req Request) (EventStream, error) {
	p.lastReq = req
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &fakeStream{events: p.events, err: p.err}, nil
}

type fakeStream struct {
	events []Event
	err    error
	idx    int
}

func (s *fakeStream) Next() bool {
	if s.idx >= len(s.events) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeStream) Event() Event { return s.events[s.idx-1] }
func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { return nil }

func textEvents(chunks ...string) []Event {
	out := make([]Event, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, textEvent(c))
	}
	return out
}

func collect(s *Stream) []Event {
	var out []Event
	for s.Next() {
		out = append(out, s.Event())
	}
	return out
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func freshProfile(id string) *model.RestaurantProfile {
	now := time.Now().UTC()
	return &model.RestaurantProfile{
		ID:             id,
		Name:           "Harbor & Vine",
		Connections:    model.ConnectionState{"pos": true},
		Facts:          &model.DataFacts{TotalOrders: 100, AvgDailyRevenue: 1000},
		FactsUpdatedAt: &now,
	}
}

func TestGenerateHappyPath(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	provider := &fakeProvider{
		events: textEvents("```json\n", wellFormed, "\n```"),
	}
	orch := NewOrchestrator(st, provider, Config{Model: "test-model", MaxTokens: 1024})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	events := collect(stream)
	require.NoError(t, stream.Err())

	types := eventTypes(events)
	assert.Contains(t, types, EventStatus)
	assert.Contains(t, types, EventConfidence)
	assert.Contains(t, types, EventText)
	assert.Equal(t, EventInsights, types[len(types)-1])

	insight := stream.Insight()
	require.NotNil(t, insight)
	assert.Equal(t, "Strong weekends, weak Wednesdays", insight.Title)
	assert.Equal(t, []string{"a", "b", "c"}, insight.KeyPoints)
	assert.Equal(t, model.InsightActive, insight.Status)
	assert.Len(t, st.insights, 1)

	// The assembled context went to the provider with the fixed system prompt.
	assert.NotEmpty(t, provider.lastReq.Context)
	assert.Contains(t, provider.lastReq.System, "restaurant business analyst")
	assert.Equal(t, "test-model", provider.lastReq.Model)
}

func TestGenerateSupersedesPriorActive(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")
	st.insights["old-1"] = &model.Insight{ID: "old-1", RestaurantID: "r-1", Status: model.InsightActive}
	st.insights["old-2"] = &model.Insight{ID: "old-2", RestaurantID: "r-1", Status: model.InsightPinned}

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	collect(stream)
	require.NoError(t, stream.Err())

	assert.Equal(t, model.InsightStale, st.insights["old-1"].Status)
	// Pinned insights survive new generations.
	assert.Equal(t, model.InsightPinned, st.insights["old-2"].Status)
}

func TestGenerateRefreshesStaleFacts(t *testing.T) {
	st := newFakeStore()
	profile := freshProfile("r-1")
	stale := time.Now().UTC().Add(-48 * time.Hour)
	profile.FactsUpdatedAt = &stale
	st.profiles["r-1"] = profile
	st.daily = []model.DailySales{
		{Date: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), Revenue: 500, Orders: 20},
	}

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	collect(stream)
	require.NoError(t, stream.Err())
	assert.Equal(t, 1, st.factsUpdates)
}

func TestGenerateSkipsRefreshWhenFresh(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	collect(stream)
	require.NoError(t, stream.Err())
	assert.Zero(t, st.factsUpdates)
}

func TestGenerateDegradedParse(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	raw := "Unstructured rambling without JSON."
	provider := &fakeProvider{events: textEvents(raw)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	collect(stream)
	require.NoError(t, stream.Err())

	insight := stream.Insight()
	require.NotNil(t, insight)
	assert.Equal(t, []string{raw}, insight.KeyPoints)
	assert.Equal(t, "limited", insight.DataQuality)
}

func TestGenerateProviderOpenError(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	provider := &fakeProvider{openErr: eris.New("api unreachable")}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	events := collect(stream)

	require.Error(t, stream.Err())
	require.NotEmpty(t, events)
	assert.Equal(t, EventError, events[len(events)-1].Type)
	assert.Empty(t, st.insights, "nothing is persisted on the error path")
	assert.Zero(t, st.staleCalls)
}

func TestGenerateStreamError(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	provider := &fakeProvider{
		events: textEvents("partial output"),
		err:    eris.New("connection reset mid-stream"),
	}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	events := collect(stream)

	require.Error(t, stream.Err())
	assert.Equal(t, EventError, events[len(events)-1].Type)
	assert.Nil(t, stream.Insight())
	assert.Empty(t, st.insights)
}

// blockingProvider opens a stream that produces nothing until the context is
// cancelled, mirroring an API call that never returns output.
type blockingProvider struct{}

func (p *blockingProvider) Stream(ctx context.Context, req Request) (EventStream, error) {
	return &blockingStream{ctx: ctx}, nil
}

type blockingStream struct {
	ctx context.Context
}

func (s *blockingStream) Next() bool {
	<-s.ctx.Done()
	return false
}

func (s *blockingStream) Event() Event { return Event{} }
func (s *blockingStream) Err() error   { return s.ctx.Err() }
func (s *blockingStream) Close() error { return nil }

func TestGenerateCancelledMidStream(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")

	orch := NewOrchestrator(st, &blockingProvider{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	stream := orch.Generate(ctx, GenerateRequest{RestaurantID: "r-1"})
	cancel()
	collect(stream)

	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Nil(t, stream.Insight())
	assert.Empty(t, st.insights, "cancellation persists nothing")
	assert.Zero(t, st.staleCalls)
}

func TestGenerateUnknownRestaurant(t *testing.T) {
	st := newFakeStore()

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	// No profile: the call still completes against the empty picture.
	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-missing"})
	events := collect(stream)
	require.NoError(t, stream.Err())

	var conf *model.Confidence
	for _, e := range events {
		if e.Type == EventConfidence {
			conf = e.Confidence
		}
	}
	require.NotNil(t, conf)
	assert.Zero(t, conf.Score)
}

func TestGeneratePersistFailureSurfaces(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")
	st.createInsightErr = eris.New("disk full")

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	events := collect(stream)

	require.Error(t, stream.Err())
	assert.Equal(t, EventError, events[len(events)-1].Type)
	assert.Nil(t, stream.Insight())
}

func TestGenerateStaleMarkFailureIsSwallowed(t *testing.T) {
	st := newFakeStore()
	st.profiles["r-1"] = freshProfile("r-1")
	st.markStaleErr = eris.New("lock timeout")

	provider := &fakeProvider{events: textEvents(wellFormed)}
	orch := NewOrchestrator(st, provider, Config{})

	stream := orch.Generate(context.Background(), GenerateRequest{RestaurantID: "r-1"})
	collect(stream)
	require.NoError(t, stream.Err())
	assert.NotNil(t, stream.Insight())
}

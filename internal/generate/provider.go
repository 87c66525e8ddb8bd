package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/covercount/insights-cli/pkg/anthropic"
)

// Request carries the assembled prompt material for one generation call.
type Request struct {
	System    string
	Context   string
	Model     string
	MaxTokens int64
}

// Provider produces a stream of typed generation events for a request. The
// production implementation talks to the Anthropic API; tests substitute a
// fake that can emit the full event vocabulary.
type Provider interface {
	Stream(ctx context.Context, req Request) (EventStream, error)
}

// EventStream is a lazy, finite, non-restartable iterator over events. After
// Next returns false, Err reports whether the stream ended cleanly.
type EventStream interface {
	Next() bool
	Event() Event
	Err() error
	Close() error
}

// anthropicProvider adapts the Anthropic client to the Provider interface.
// It only ever emits text events; the orchestrator layers status, confidence,
// and insights events around it.
type anthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider wraps an Anthropic client as a Provider.
func NewAnthropicProvider(client anthropic.Client) Provider {
	return &anthropicProvider{client: client}
}

func (p *anthropicProvider) Stream(ctx context.Context, req Request) (EventStream, error) {
	stream, err := p.client.StreamMessage(ctx, anthropic.MessageRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(req.System),
		Messages: []anthropic.Message{
			{Role: "user", Content: req.Context},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "generate: open provider stream")
	}
	return &anthropicStream{stream: stream, model: req.Model}, nil
}

type anthropicStream struct {
	stream anthropic.MessageStream
	model  string
	cur    Event
}

func (s *anthropicStream) Next() bool {
	if !s.stream.Next() {
		if final, ok := s.stream.Final(); ok {
			final.Usage.LogUsage(s.model, "generate")
		}
		return false
	}
	s.cur = textEvent(s.stream.Delta())
	return true
}

func (s *anthropicStream) Event() Event {
	return s.cur
}

func (s *anthropicStream) Err() error {
	return s.stream.Err()
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}

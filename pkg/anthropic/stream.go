package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// sdkMessageStream adapts the SDK's SSE stream to MessageStream, surfacing
// only text deltas and accumulating the full message as events arrive.
type sdkMessageStream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	acc    sdk.Message
	delta  string
	done   bool
}

func (s *sdkMessageStream) Next() bool {
	for s.stream.Next() {
		event := s.stream.Current()
		if err := s.acc.Accumulate(event); err != nil {
			// A single malformed frame is skipped, not fatal.
			zap.L().Warn("anthropic: skipping unaccumulable stream event", zap.Error(err))
		}

		switch variant := event.AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			if text, ok := variant.Delta.AsAny().(sdk.TextDelta); ok && text.Text != "" {
				s.delta = text.Text
				return true
			}
		case sdk.MessageStopEvent:
			s.done = true
		}
	}
	return false
}

func (s *sdkMessageStream) Delta() string {
	return s.delta
}

func (s *sdkMessageStream) Final() (*MessageResponse, bool) {
	if !s.done || s.stream.Err() != nil {
		return nil, false
	}
	return fromSDKMessage(&s.acc), true
}

func (s *sdkMessageStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return eris.Wrap(err, "anthropic: stream")
	}
	return nil
}

func (s *sdkMessageStream) Close() error {
	return s.stream.Close()
}

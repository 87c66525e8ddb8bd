package generate

import "github.com/covercount/insights-cli/internal/model"

// EventType identifies a typed streaming event.
type EventType string

const (
	EventStatus     EventType = "status"
	EventText       EventType = "text"
	EventConfidence EventType = "confidence"
	EventInsights   EventType = "insights"
	EventError      EventType = "error"
)

// Event is one element of a generation stream. Exactly the field matching the
// type is populated.
type Event struct {
	Type       EventType
	Status     string
	Text       string
	Confidence *model.Confidence
	Insights   []model.Insight
	Message    string
}

// Data returns the event-specific payload for wire encoding.
func (e Event) Data() any {
	switch e.Type {
	case EventStatus:
		return map[string]string{"message": e.Status}
	case EventText:
		return map[string]string{"chunk": e.Text}
	case EventConfidence:
		return e.Confidence
	case EventInsights:
		return e.Insights
	case EventError:
		return map[string]string{"message": e.Message}
	default:
		return nil
	}
}

// Convenience constructors keep call sites terse.

func statusEvent(msg string) Event {
	return Event{Type: EventStatus, Status: msg}
}

func textEvent(chunk string) Event {
	return Event{Type: EventText, Text: chunk}
}

func confidenceEvent(c model.Confidence) Event {
	return Event{Type: EventConfidence, Confidence: &c}
}

func insightsEvent(insights []model.Insight) Event {
	return Event{Type: EventInsights, Insights: insights}
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Message: msg}
}

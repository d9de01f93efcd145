package core

// EventType names the kind of progress record emitted to callers.
type EventType string

const (
	// EventStart opens a session.
	EventStart EventType = "start"
	// EventMessage carries one produced turn.
	EventMessage EventType = "message"
	// EventComplete closes a session after persistence.
	EventComplete EventType = "complete"
	// EventError reports a malformed request; the session never starts.
	EventError EventType = "error"
)

// Event is one self-contained record of the ordered event stream. It is
// serialized as {"type": ..., "data": ...}. After emission it should be
// treated as immutable.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// StartData is the payload of EventStart.
type StartData struct {
	Topic string `json:"topic"`
	Turns int    `json:"turns"`
}

// CompleteData is the payload of EventComplete.
type CompleteData struct {
	ConversationID string `json:"conversation_id"`
	TotalMessages  int    `json:"total_messages"`
}

// ErrorData is the payload of EventError.
type ErrorData struct {
	Message string `json:"message"`
}

// NewStartEvent announces a session on topic with the requested turn count.
func NewStartEvent(topic string, turns int) Event {
	return Event{Type: EventStart, Data: StartData{Topic: topic, Turns: turns}}
}

// NewMessageEvent wraps a produced turn.
func NewMessageEvent(rec TurnRecord) Event {
	return Event{Type: EventMessage, Data: rec}
}

// NewCompleteEvent reports the persisted conversation id and its size.
func NewCompleteEvent(conversationID string, total int) Event {
	return Event{Type: EventComplete, Data: CompleteData{ConversationID: conversationID, TotalMessages: total}}
}

// NewErrorEvent reports an invalid invocation.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Data: ErrorData{Message: message}}
}

// Turn returns the TurnRecord carried by a message event.
func (e Event) Turn() (TurnRecord, bool) {
	rec, ok := e.Data.(TurnRecord)
	return rec, ok && e.Type == EventMessage
}

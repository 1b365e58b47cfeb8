package llmprovider

// EventKind is the classification of a vendor stream event.
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventContentDelta
	EventBlockStart
	EventBlockStop
	EventMessageStart
	EventMessageStop
	EventKeepAlive
)

var eventKindNames = map[EventKind]string{
	EventUnrecognized: "unrecognized",
	EventContentDelta: "content_delta",
	EventBlockStart:   "block_start",
	EventBlockStop:    "block_stop",
	EventMessageStart: "message_start",
	EventMessageStop:  "message_stop",
	EventKeepAlive:    "keep_alive",
}

// String returns the event kind name
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Framing describes how a vendor lays out its streaming body.
//
// It is pure data: the decoder control flow never branches on vendor identity,
// only on what the framing says. All *Field values are gjson paths.
type Framing struct {
	// EventPrefix marks a line naming the next event (e.g., "event:")
	EventPrefix string

	// DataPrefix marks a line carrying a JSON payload (e.g., "data:")
	DataPrefix string

	// CommentPrefix marks lines to ignore (SSE uses ":")
	CommentPrefix string

	// BareJSON treats unprefixed lines as whole payloads (JSON lines framing)
	BareJSON bool

	// TypeField is the payload field holding the event type token
	TypeField string

	// DefaultEvent is the token used when neither an event line nor TypeField names one
	DefaultEvent string

	// FinishedField is the payload field holding a boolean "generation finished" flag
	FinishedField string

	// IndexField is the payload field holding the content block index
	IndexField string

	// Events maps event type tokens to kinds
	Events map[string]EventKind

	// TerminalKinds end the stream after the event is processed
	TerminalKinds []EventKind

	// DoneSentinel is a data payload that ends the stream (e.g., "[DONE]")
	DoneSentinel string

	// ErrorTokens are event type tokens signalling an in-band vendor error
	ErrorTokens []string

	// ErrorMessageField is the payload field holding an in-band error message.
	// Its presence on any payload turns the event into an error.
	ErrorMessageField string
}

// Classify maps an event type token to its kind.
// Unknown tokens are EventUnrecognized, never an error.
func (f *Framing) Classify(token string) EventKind {
	if kind, ok := f.Events[token]; ok {
		return kind
	}
	return EventUnrecognized
}

// IsTerminal reports whether events of kind end the stream.
func (f *Framing) IsTerminal(kind EventKind) bool {
	for _, k := range f.TerminalKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsErrorToken reports whether token names an in-band vendor error.
func (f *Framing) IsErrorToken(token string) bool {
	for _, t := range f.ErrorTokens {
		if t == token {
			return true
		}
	}
	return false
}

// Event is a classified base event handed to a vendor EventDecoder.
type Event struct {
	// Token is the vendor event type token
	Token string

	// Kind is the classified kind
	Kind EventKind

	// Payload is the raw JSON payload
	Payload []byte

	// BlockIndex is the block this event belongs to, or nil when the vendor has no blocks
	BlockIndex *int
}

// EventDecoder turns a classified content event into at most one canonical fragment.
//
// Returning (nil, nil) means the event carries nothing for the caller (e.g., a
// block start with empty text). Returning an error drops the event; the stream continues.
type EventDecoder interface {
	DecodeEvent(event Event, shape ResultShape) (*Result, error)
}

// EventDecoderFunc adapts a function to EventDecoder.
type EventDecoderFunc func(event Event, shape ResultShape) (*Result, error)

// DecodeEvent calls f(event, shape).
func (f EventDecoderFunc) DecodeEvent(event Event, shape ResultShape) (*Result, error) {
	return f(event, shape)
}

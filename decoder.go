package llmprovider

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// maxLoggedPayload truncates payloads in debug logs
const maxLoggedPayload = 256

// Decoder turns a vendor streaming body into canonical fragments.
//
// It is pull-based: each Next call reads lines until one fragment is ready or
// the stream ends. No goroutines are started. A Decoder is built per call and
// owns only the pending event token, the last seen block index and its done flag.
type Decoder struct {
	provider ProviderID
	source   LineSource
	framing  *Framing
	events   EventDecoder
	shape    ResultShape
	logger   *slog.Logger
	observer StreamObserver

	pendingToken string
	lastIndex    *int
	done         bool
	closed       bool
	sourceClosed bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithDecoderProvider sets the provider reported to the observer and logs.
func WithDecoderProvider(id ProviderID) DecoderOption {
	return func(d *Decoder) {
		d.provider = id
	}
}

// WithDecoderLogger sets the debug logger. Nil keeps the discarding default.
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDecoderObserver sets the progress observer. Nil keeps the no-op default.
func WithDecoderObserver(observer StreamObserver) DecoderOption {
	return func(d *Decoder) {
		if observer != nil {
			d.observer = observer
		}
	}
}

// NewDecoder creates a decoder reading source with the given framing.
func NewDecoder(source LineSource, framing *Framing, events EventDecoder, shape ResultShape, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		source:   source,
		framing:  framing,
		events:   events,
		shape:    shape,
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next fragment, io.EOF at the end of the stream, or a
// non-EOF error once before ending. After Close it returns ErrStreamClosed.
func (d *Decoder) Next() (*Result, error) {
	if d.closed {
		return nil, ErrStreamClosed
	}
	if d.done {
		return nil, io.EOF
	}

	for {
		line, err := d.source.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.finish(nil)
				return nil, io.EOF
			}
			d.finish(err)
			return nil, err
		}

		payload, ok := d.payload(line)
		if !ok {
			continue
		}

		if d.framing.DoneSentinel != "" && payload == d.framing.DoneSentinel {
			d.finish(nil)
			return nil, io.EOF
		}

		result, terminal, err := d.handle(payload)
		if err != nil {
			d.finish(err)
			return nil, err
		}

		if result != nil {
			d.observer.FragmentEmitted(d.provider, d.shape)
		}

		if terminal {
			d.finish(nil)
			if result != nil {
				return result, nil
			}
			return nil, io.EOF
		}

		if result != nil {
			return result, nil
		}
	}
}

// Close stops the stream and releases the source. Safe to call more than once.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.done {
		d.done = true
		d.observer.StreamEnded(d.provider, nil)
	}
	return d.closeSource()
}

// payload extracts the JSON payload of a line. Lines that carry no payload
// (blank, comment, event name, unknown field) return false.
func (d *Decoder) payload(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}

	f := d.framing
	switch {
	case f.CommentPrefix != "" && strings.HasPrefix(trimmed, f.CommentPrefix):
		return "", false
	case f.EventPrefix != "" && strings.HasPrefix(trimmed, f.EventPrefix):
		d.pendingToken = strings.TrimSpace(strings.TrimPrefix(trimmed, f.EventPrefix))
		return "", false
	case f.DataPrefix != "" && strings.HasPrefix(trimmed, f.DataPrefix):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, f.DataPrefix)), true
	case f.BareJSON:
		return trimmed, true
	default:
		return "", false
	}
}

// handle parses the base event and dispatches it by kind.
func (d *Decoder) handle(payload string) (*Result, bool, error) {
	token := d.pendingToken
	d.pendingToken = ""

	data := []byte(payload)
	if !gjson.ValidBytes(data) {
		d.skip(SkipMalformed, token, payload)
		return nil, false, nil
	}

	f := d.framing
	if token == "" && f.TypeField != "" {
		token = gjson.GetBytes(data, f.TypeField).String()
	}
	if token == "" {
		token = f.DefaultEvent
	}

	finished := f.FinishedField != "" && gjson.GetBytes(data, f.FinishedField).Bool()

	if f.IsErrorToken(token) || (f.ErrorMessageField != "" && gjson.GetBytes(data, f.ErrorMessageField).Exists()) {
		return nil, true, d.inbandError(data)
	}

	kind := f.Classify(token)
	switch kind {
	case EventUnrecognized:
		d.skip(SkipUnrecognized, token, payload)
		return nil, false, nil
	case EventKeepAlive:
		d.skip(SkipKeepAlive, token, payload)
		return nil, false, nil
	}

	// skipped events never move the block index
	if f.IndexField != "" {
		if idx := gjson.GetBytes(data, f.IndexField); idx.Type == gjson.Number {
			i := int(idx.Int())
			d.lastIndex = &i
		}
	}

	event := Event{
		Token:   token,
		Kind:    kind,
		Payload: data,
	}
	if d.lastIndex != nil {
		i := *d.lastIndex
		event.BlockIndex = &i
	}

	terminal := finished || f.IsTerminal(kind)

	result, err := d.events.DecodeEvent(event, d.shape)
	if err != nil {
		d.logger.Debug("dropping undecodable stream event",
			"provider", d.provider,
			"event", token,
			"error", err)
		d.observer.EventSkipped(d.provider, SkipUndecodable)
		return nil, terminal, nil
	}

	return result, terminal, nil
}

// inbandError converts a vendor error event into a *ProviderError.
func (d *Decoder) inbandError(data []byte) error {
	f := d.framing
	message := ""
	if f.ErrorMessageField != "" {
		message = gjson.GetBytes(data, f.ErrorMessageField).String()
	}
	if message == "" {
		message = gjson.GetBytes(data, "message").String()
	}
	if message == "" {
		message = string(data)
	}

	errType := gjson.GetBytes(data, "error.type").String()
	retryable, sentinel := classifyErrorType(errType)

	return &ProviderError{
		Provider:  d.provider.String(),
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Err:       sentinel,
	}
}

func (d *Decoder) skip(reason SkipReason, token, payload string) {
	if len(payload) > maxLoggedPayload {
		payload = payload[:maxLoggedPayload] + "..."
	}
	d.logger.Debug("skipping stream event",
		"provider", d.provider,
		"reason", reason,
		"event", token,
		"payload", payload)
	d.observer.EventSkipped(d.provider, reason)
}

// finish ends the stream and releases the source.
func (d *Decoder) finish(err error) {
	if d.done {
		return
	}
	d.done = true
	d.observer.StreamEnded(d.provider, err)
	if cerr := d.closeSource(); cerr != nil {
		d.logger.Debug("closing stream source", "provider", d.provider, "error", cerr)
	}
}

func (d *Decoder) closeSource() error {
	if d.sourceClosed {
		return nil
	}
	d.sourceClosed = true
	return d.source.Close()
}

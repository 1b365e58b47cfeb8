package llmprovider

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// recordingObserver counts decoder notifications.
type recordingObserver struct {
	mu        sync.Mutex
	fragments int
	skipped   map[SkipReason]int
	ended     int
	endErr    error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{skipped: make(map[SkipReason]int)}
}

func (o *recordingObserver) FragmentEmitted(ProviderID, ResultShape) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fragments++
}

func (o *recordingObserver) EventSkipped(_ ProviderID, reason SkipReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped[reason]++
}

func (o *recordingObserver) StreamEnded(_ ProviderID, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended++
	o.endErr = err
}

// trackingSource wraps a slice source and records Close calls.
type trackingSource struct {
	LineSource
	closes int
	err    error // returned after the lines run out, instead of io.EOF
}

func newTrackingSource(lines []string) *trackingSource {
	return &trackingSource{LineSource: NewSliceLineSource(lines)}
}

func (s *trackingSource) ReadLine() (string, error) {
	line, err := s.LineSource.ReadLine()
	if errors.Is(err, io.EOF) && s.err != nil {
		return "", s.err
	}
	return line, err
}

func (s *trackingSource) Close() error {
	s.closes++
	return s.LineSource.Close()
}

// testFraming is a vendor-neutral SSE framing used by decoder tests.
func testFraming() *Framing {
	return &Framing{
		EventPrefix:   "event:",
		DataPrefix:    "data:",
		CommentPrefix: ":",
		TypeField:     "type",
		IndexField:    "index",
		Events: map[string]EventKind{
			"start": EventMessageStart,
			"delta": EventContentDelta,
			"stop":  EventMessageStop,
			"ping":  EventKeepAlive,
		},
		TerminalKinds:     []EventKind{EventMessageStop},
		DoneSentinel:      "[DONE]",
		ErrorTokens:       []string{"error"},
		ErrorMessageField: "error.message",
	}
}

// textEvents emits the "text" field of delta events.
var textEvents = EventDecoderFunc(func(event Event, shape ResultShape) (*Result, error) {
	if event.Kind != EventContentDelta {
		return nil, nil
	}
	text := gjson.GetBytes(event.Payload, "text")
	if !text.Exists() {
		return nil, errors.New("delta without text")
	}
	content := text.String()
	result := DeltaResult(shape, RoleAssistant, &content)
	result.Choices[0].BlockIndex = event.BlockIndex
	return result, nil
})

// drain reads d to the end and returns the text of every fragment.
func drain(t *testing.T, d *Decoder) []string {
	t.Helper()
	var texts []string
	for {
		result, err := d.Next()
		if errors.Is(err, io.EOF) {
			return texts
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		texts = append(texts, result.Text(0))
	}
}

package providertest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RecordedRequest is what the fake vendor saw.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is a fake vendor endpoint replaying fixed wire lines.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewServer starts a server that answers every request with status, contentType and lines.
// Lines are written one at a time with a flush between them, like a real stream.
func NewServer(t testing.TB, status int, contentType string, lines []string) *Server {
	t.Helper()

	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Request-Id", "req_test")
		w.Header().Set("X-Request-Id", "req_test")
		w.WriteHeader(status)

		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// NewStreamServer starts a 200 text/event-stream server.
func NewStreamServer(t testing.TB, lines []string) *Server {
	return NewServer(t, http.StatusOK, "text/event-stream", lines)
}

// NewJSONServer starts a server returning one JSON body with status.
func NewJSONServer(t testing.TB, status int, body []byte) *Server {
	return NewServer(t, status, "application/json", []string{string(body)})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// TrackingBody is an in-memory response body that records reads and Close.
type TrackingBody struct {
	reader *strings.Reader

	mu     sync.Mutex
	reads  int
	closed bool
}

// NewTrackingBody joins lines with newlines.
func NewTrackingBody(lines []string) *TrackingBody {
	return &TrackingBody{reader: strings.NewReader(strings.Join(lines, "\n") + "\n")}
}

// Read implements io.Reader. Reads after Close fail.
func (b *TrackingBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, io.ErrClosedPipe
	}
	b.reads++
	return b.reader.Read(p)
}

// Close implements io.Closer.
func (b *TrackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *TrackingBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Remaining returns the number of unread bytes.
func (b *TrackingBody) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reader.Len()
}

// Response wraps lines in a 200 response with a request id header.
func Response(lines []string) (*http.Response, *TrackingBody) {
	body := NewTrackingBody(lines)
	header := make(http.Header)
	header.Set("Request-Id", "req_test")
	header.Set("X-Request-Id", "req_test")
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       body,
	}, body
}

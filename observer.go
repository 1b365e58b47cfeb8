package llmprovider

// SkipReason explains why the decoder consumed a line without emitting.
type SkipReason string

const (
	SkipMalformed    SkipReason = "malformed"
	SkipUnrecognized SkipReason = "unrecognized"
	SkipKeepAlive    SkipReason = "keep_alive"
	SkipUndecodable  SkipReason = "undecodable"
)

// StreamObserver receives decoder progress. Implementations must be safe for
// concurrent use when shared between streams.
type StreamObserver interface {
	// FragmentEmitted is called for each fragment returned by Next
	FragmentEmitted(provider ProviderID, shape ResultShape)

	// EventSkipped is called for each payload consumed without a fragment
	EventSkipped(provider ProviderID, reason SkipReason)

	// StreamEnded is called once, with nil for a normal end
	StreamEnded(provider ProviderID, err error)
}

// nopObserver discards all notifications.
type nopObserver struct{}

func (nopObserver) FragmentEmitted(ProviderID, ResultShape) {}
func (nopObserver) EventSkipped(ProviderID, SkipReason)     {}
func (nopObserver) StreamEnded(ProviderID, error)           {}

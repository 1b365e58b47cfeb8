package llmprovider

import (
	"errors"
	"io"
	"iter"
)

// Stream is the caller-facing sequence of canonical fragments for one streaming call.
//
// Usage:
//
//	stream := adapter.DecodeStream(resp, llmprovider.ShapeChat)
//	for result, err := range stream.All() {
//	    if err != nil { return err }
//	    fmt.Print(result.Text(0))
//	}
//
// Breaking out of the loop closes the underlying connection.
type Stream struct {
	decoder  *Decoder
	annotate func(*Result)
}

// NewStream wraps a decoder. annotate, if non-nil, runs on every fragment
// before it is returned (adapters use it to stamp provenance).
func NewStream(decoder *Decoder, annotate func(*Result)) *Stream {
	return &Stream{decoder: decoder, annotate: annotate}
}

// Next returns the next fragment or io.EOF at the end of the stream.
func (s *Stream) Next() (*Result, error) {
	result, err := s.decoder.Next()
	if err != nil {
		return nil, err
	}
	if s.annotate != nil {
		s.annotate(result)
	}
	return result, nil
}

// Close abandons the stream and releases the connection.
func (s *Stream) Close() error {
	return s.decoder.Close()
}

// All returns a range-over-func iterator of fragments.
// A non-EOF error is yielded once and ends the iteration.
func (s *Stream) All() iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		defer s.Close()
		for {
			result, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(result, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the stream into an Accumulator and returns the aggregate result.
func (s *Stream) Collect() (*Result, error) {
	acc := NewAccumulator()
	for result, err := range s.All() {
		if err != nil {
			return acc.Result(), err
		}
		acc.Add(result)
	}
	return acc.Result(), nil
}

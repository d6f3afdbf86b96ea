// Package submit hands converted feature collections to their destination.
//
// The platform transport is not part of this module; Submitter is the seam a
// platform client plugs into. WriterSubmitter covers local runs and Recorder
// keeps collections in memory for the invocation server and tests.
package submit

import (
	"context"
	"fmt"
	"io"
	"sync"

	geojson "github.com/paulmach/go.geojson"

	"github.com/theoremus-urban-solutions/etl-strato/formatter"
)

// Submitter delivers one feature collection
type Submitter interface {
	Submit(ctx context.Context, fc *geojson.FeatureCollection) error
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, fc *geojson.FeatureCollection) error

// Submit calls f(ctx, fc)
func (f SubmitterFunc) Submit(ctx context.Context, fc *geojson.FeatureCollection) error {
	return f(ctx, fc)
}

// WriterSubmitter writes each collection as one JSON document followed by a
// newline
type WriterSubmitter struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
}

// NewWriterSubmitter creates a submitter writing to w
func NewWriterSubmitter(w io.Writer, pretty bool) *WriterSubmitter {
	return &WriterSubmitter{w: w, pretty: pretty}
}

func (s *WriterSubmitter) Submit(ctx context.Context, fc *geojson.FeatureCollection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := formatter.NewResponseBuilder(s.pretty).BuildJSON(fc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write feature collection: %w", err)
	}
	return nil
}

// Recorder keeps every submitted collection
type Recorder struct {
	mu          sync.Mutex
	collections []*geojson.FeatureCollection
}

func (r *Recorder) Submit(ctx context.Context, fc *geojson.FeatureCollection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = append(r.collections, fc)
	return nil
}

// Collections returns the recorded collections in submission order
func (r *Recorder) Collections() []*geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*geojson.FeatureCollection, len(r.collections))
	copy(out, r.collections)
	return out
}

// Last returns the most recent collection, or nil
func (r *Recorder) Last() *geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.collections) == 0 {
		return nil
	}
	return r.collections[len(r.collections)-1]
}

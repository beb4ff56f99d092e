// Package source provides the stream ends of the pipeline: outer item
// lists, file-backed inner streams and the mappers that open them, plus
// retry middleware for flaky opens.
package source

import "github.com/minhpq/funnel/internal/core/stream"

// Paths is the static outer list: one item per path, in the given order.
func Paths(paths ...string) stream.Stream[string] {
	return stream.FromSlice(paths)
}

package fetcher

import (
	"context"
)

// ScrollMetrics describes the vertical scroll state of a page.
type ScrollMetrics struct {
	Offset   int // current scroll offset
	Viewport int // viewport height
	Height   int // total document height
}

// AtBottom reports whether the viewport reaches within threshold pixels of the
// document end.
func (m ScrollMetrics) AtBottom(threshold int) bool {
	return m.Offset+m.Viewport >= m.Height-threshold
}

// Page is a loaded product page that can be waited on, scrolled and snapshotted.
type Page interface {
	// URL returns the current page address.
	URL() string

	// ReadyState returns the document load state ("loading", "interactive", "complete").
	ReadyState(ctx context.Context) (string, error)

	// WaitLoad blocks until the page load event fires or ctx is done.
	WaitLoad(ctx context.Context) error

	// ScrollMetrics returns the current scroll position and document height.
	ScrollMetrics(ctx context.Context) (ScrollMetrics, error)

	// ScrollTo scrolls the viewport to the given vertical offset.
	ScrollTo(ctx context.Context, top int) error

	// Snapshot returns the current serialized DOM.
	Snapshot(ctx context.Context) (string, error)

	// Close releases the page.
	Close() error
}

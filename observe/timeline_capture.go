package observe

import (
	"context"
	"sync/atomic"
)

// TimelineCapture receives the timeline of one call once that call has finished.
type TimelineCapture struct {
	tl atomic.Pointer[Timeline]
}

// Timeline returns the captured timeline, or nil while the call is still running. It may be
// called from any goroutine.
func (c *TimelineCapture) Timeline() *Timeline {
	if c == nil {
		return nil
	}
	return c.tl.Load()
}

type timelineCaptureKey struct{}

// noCapture marks a context whose calls must not publish a timeline.
var noCapture = (*TimelineCapture)(nil)

// RecordTimeline asks the next call made with the returned context to publish its timeline into
// the returned capture.
func RecordTimeline(ctx context.Context) (context.Context, *TimelineCapture) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &TimelineCapture{}
	return context.WithValue(ctx, timelineCaptureKey{}, c), c
}

// TimelineCaptureFromContext returns the capture requested on ctx.
func TimelineCaptureFromContext(ctx context.Context) (*TimelineCapture, bool) {
	if ctx == nil {
		return nil, false
	}
	c, _ := ctx.Value(timelineCaptureKey{}).(*TimelineCapture)
	return c, c != nil
}

// WithoutTimelineCapture hides any capture requested on ctx. Attempts run under it, so calls
// nested inside an operation leave the outer capture alone.
func WithoutTimelineCapture(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, timelineCaptureKey{}, noCapture)
}

// StoreTimelineCapture publishes tl into c. Nil arguments are ignored.
func StoreTimelineCapture(c *TimelineCapture, tl *Timeline) {
	if c == nil || tl == nil {
		return
	}
	c.tl.Store(tl)
}

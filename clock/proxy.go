package clock

import (
	"context"
	"time"
)

type clockKey struct{}

// WithClock returns a derived context carrying c as the ambient clock.
func WithClock(ctx context.Context, c Clock) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clockKey{}, c)
}

// FromContext returns the ambient clock carried by ctx, or Live when there is none.
func FromContext(ctx context.Context) Clock {
	if ctx != nil {
		if c, ok := ctx.Value(clockKey{}).(Clock); ok && c != nil {
			return c
		}
	}
	return Live{}
}

// Proxy resolves the ambient clock from the context on every call.
//
// It lets code hold a Clock value while tests swap the time source per context.
type Proxy struct{}

func (Proxy) CurrentTime(ctx context.Context) int64 {
	return FromContext(ctx).CurrentTime(ctx)
}

func (Proxy) Sleep(ctx context.Context, d time.Duration) error {
	return FromContext(ctx).Sleep(ctx, d)
}

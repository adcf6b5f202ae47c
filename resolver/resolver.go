package resolver

import (
	"context"
	"io"
	"sync"

	"github.com/kbukum/cmdstream/errors"
)

// Resolver turns an item into a readable byte stream. Resolve is called at
// most once per item, on a goroutine of its own.
type Resolver interface {
	Resolve(ctx context.Context, item any) (io.Reader, error)
}

// ResolveFunc adapts an ordinary function to the Resolver interface.
type ResolveFunc func(ctx context.Context, item any) (io.Reader, error)

// Resolve calls f(ctx, item).
func (f ResolveFunc) Resolve(ctx context.Context, item any) (io.Reader, error) {
	return f(ctx, item)
}

// Callback is a completion-style resolver. It may complete before returning
// or later from any goroutine.
type Callback func(ctx context.Context, item any, done *Completion)

// Func adapts a Callback to the Resolver interface. Resolve returns the first
// outcome reported through the Completion, or ctx.Err() if none arrives before
// ctx is done.
func Func(cb Callback) Resolver {
	return callbackResolver(cb)
}

type callbackResolver Callback

func (cb callbackResolver) Resolve(ctx context.Context, item any) (io.Reader, error) {
	c := newCompletion()
	cb(ctx, item, c)

	select {
	case out := <-c.ch:
		return out.r, out.err
	case <-ctx.Done():
		c.abandon()
		// A completion may have raced the cancellation.
		select {
		case out := <-c.ch:
			return out.r, out.err
		default:
		}
		return nil, ctx.Err()
	}
}

type outcome struct {
	r   io.Reader
	err error
}

// Completion carries the single outcome of a callback resolver. The first
// call to Succeed or Fail wins; later calls report false and are ignored.
type Completion struct {
	mu        sync.Mutex
	done      bool
	abandoned bool
	ch        chan outcome
}

func newCompletion() *Completion {
	return &Completion{ch: make(chan outcome, 1)}
}

// Succeed reports r as the resolved stream. A nil reader is treated as a
// failure.
func (c *Completion) Succeed(r io.Reader) bool {
	if r == nil {
		return c.complete(outcome{err: errors.ResolveError("resolver produced no stream", nil)})
	}
	return c.complete(outcome{r: r})
}

// Fail reports err as the resolution failure.
func (c *Completion) Fail(err error) bool {
	if err == nil {
		err = errors.ResolveError("resolver failed", nil)
	}
	return c.complete(outcome{err: err})
}

// Completed reports whether an outcome has been accepted.
func (c *Completion) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Completion) complete(out outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		// Nobody is left to read a stream that arrives after cancellation.
		if rc, ok := out.r.(io.Closer); ok {
			_ = rc.Close()
		}
		return false
	}
	if c.done {
		return false
	}
	c.done = true
	c.ch <- out
	return true
}

func (c *Completion) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandoned = !c.done
	c.done = true
}

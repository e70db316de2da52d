// Package closuresignaler provides a one-shot "this thing is closed" signal
// for objects that wrap libav resources.
package closuresignaler

import (
	"context"
	"sync"

	"github.com/xaionaro-go/avscene/logger"
)

type ClosureSignaler struct {
	closeOnce sync.Once
	c         chan struct{}
}

func New() *ClosureSignaler {
	return &ClosureSignaler{
		c: make(chan struct{}),
	}
}

func (c *ClosureSignaler) CloseChan() <-chan struct{} {
	return c.c
}

// Close is idempotent; only the first call has an effect.
func (c *ClosureSignaler) Close(ctx context.Context) {
	c.closeOnce.Do(func() {
		logger.Tracef(ctx, "closing")
		close(c.c)
	})
}

func (c *ClosureSignaler) IsClosed() bool {
	select {
	case <-c.c:
		return true
	default:
		return false
	}
}

package closuresignaler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClosureSignaler(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.False(t, c.IsClosed())

	c.Close(ctx)
	c.Close(ctx)
	require.True(t, c.IsClosed())

	select {
	case <-c.CloseChan():
	default:
		t.Fatal("the close channel is expected to be closed")
	}
}

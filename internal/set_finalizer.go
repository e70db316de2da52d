package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/avscene/logger"
)

// SetFinalizerFree makes sure a libav object is freed once it becomes
// unreachable from Go.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Tracef(ctx, "freeing %T", freer)
		freer.Free()
	})
}

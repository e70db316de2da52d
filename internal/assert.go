// Package internal contains helpers shared by avscene packages that are not
// part of the public API.
package internal

import (
	"context"

	"github.com/xaionaro-go/avscene/logger"
)

func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panicf(ctx, "assertion failed: %v", extraArgs)
}

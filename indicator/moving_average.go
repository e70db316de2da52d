// Package indicator provides moving averages used to track the "usual"
// level of a per-frame score.
package indicator

import (
	"golang.org/x/exp/constraints"
)

type MovingAverage[T constraints.Integer | constraints.Float] interface {
	// Update adds a measurement and returns the new average.
	Update(v T) T
	InitPeriod() int64
	Valid() bool
}

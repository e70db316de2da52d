// Package avconv provides conversions between libav values and Go/avscene
// values.
package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	// see https://ffmpeg.org/doxygen/trunk/group__lavu__time.html#ga2eaefe702f95f619ea6f2d08afa01be1
	avNoPTSValue = uint64(0x8000000000000000)
)

const (
	NoPTSValue = int64(math.MinInt64)
	NoDuration = time.Duration(math.MinInt64)
)

func Duration(t int64, timeBase astiav.Rational) time.Duration {
	if uint64(t) == avNoPTSValue {
		return NoDuration
	}

	return time.Duration(float64(t) * timeBase.Float64() * float64(time.Second))
}

func FromDuration(d time.Duration, timeBase astiav.Rational) int64 {
	if d == NoDuration {
		return math.MinInt64 // equivalent to avNoPTSValue
	}

	return int64(d.Seconds() / timeBase.Float64())
}

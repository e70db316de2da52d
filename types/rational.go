// rational.go defines the Rational type used for frame rates.

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Rational is a fraction, used mostly for frame rates ("30000/1001").
type Rational struct {
	Num int
	Den int
}

func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

func (r Rational) Reverse() Rational {
	return Rational{
		Num: r.Den,
		Den: r.Num,
	}
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// FrameDuration returns the duration of a single frame if r is a frame rate.
func (r Rational) FrameDuration() time.Duration {
	if r.IsZero() {
		return 0
	}
	return time.Duration(int64(time.Second) * int64(r.Den) / int64(r.Num))
}

// FrameToDuration returns the timestamp of the frame with the given index if
// r is a frame rate.
func (r Rational) FrameToDuration(frameIdx int) time.Duration {
	if r.IsZero() {
		return 0
	}
	return time.Duration(int64(frameIdx) * int64(time.Second) * int64(r.Den) / int64(r.Num))
}

// DurationToFrame is the reverse of FrameToDuration, rounding down.
func (r Rational) DurationToFrame(d time.Duration) int {
	if r.IsZero() {
		return 0
	}
	return int(int64(d) * int64(r.Num) / (int64(time.Second) * int64(r.Den)))
}

func newNTSCRationalFromFloat64(f float64) *big.Rat {
	den := 1001 // common denominator for NTSC frame rates
	num := math.Ceil(f) * 1000
	r := big.NewRat(int64(num), int64(den))
	confirmValue, _ := r.Float64()
	if math.Abs(f-confirmValue) < 1e-2 {
		return r
	}
	return nil
}

func RationalFromApproxFloat64(fps float64) (r Rational) {
	if float64(int(fps)) == fps {
		r.Num = int(fps)
		r.Den = 1
		return
	}

	rat := newNTSCRationalFromFloat64(fps)
	if rat != nil {
		r.Num = int(rat.Num().Int64())
		r.Den = int(rat.Denom().Int64())
		return
	}

	r.Num = int(fps * 1000000)
	r.Den = 1000000

	gcd := big.NewInt(0).GCD(nil, nil, big.NewInt(int64(r.Num)), big.NewInt(int64(r.Den))).Int64()
	r.Num /= int(gcd)
	r.Den /= int(gcd)
	return
}

func RationalFromFloat64(fps float64) Rational {
	if float64(int(fps)) == fps {
		return Rational{Num: int(fps), Den: 1}
	}
	rat, ok := new(big.Rat).SetString(strconv.FormatFloat(fps, 'f', 6, 64))
	if !ok {
		return Rational{}
	}
	return Rational{
		Num: int(rat.Num().Int64()),
		Den: int(rat.Denom().Int64()),
	}
}

// RationalFromString parses "30000/1001", "29.97" (exact) or "~29.97"
// (snapped to the closest NTSC rate if there is one).
func RationalFromString(s string) (*Rational, error) {
	var r Rational
	switch {
	case len(s) == 0:
		return nil, fmt.Errorf("unable to parse Rational from empty string")
	case strings.Contains(s, "/"):
		if _, err := fmt.Sscanf(s, "%d/%d", &r.Num, &r.Den); err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
	case s[0] == '~':
		fps, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromApproxFloat64(fps)
	default:
		fps, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromFloat64(fps)
	}
	if r.Den == 0 {
		return nil, fmt.Errorf("denominator cannot be zero")
	}
	return &r, nil
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rational) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unmarshal Rational from JSON '%s': %w", b, err)
	}
	v, err := RationalFromString(s)
	if err != nil {
		return fmt.Errorf("unable to unmarshal Rational from string %q: %w", s, err)
	}
	*r = *v
	return nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

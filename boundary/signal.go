package boundary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Signal is a per-frame flag "a scene boundary starts at this frame".
//
// A Signal produced by a detector is not modified afterwards; use Clone
// before changing one.
type Signal []bool

// NewSignal returns a signal of the given length with boundaries at the
// given indices.
func NewSignal(length int, boundaryIndices ...int) (Signal, error) {
	if length < 0 {
		return nil, fmt.Errorf("negative signal length: %d", length)
	}
	s := make(Signal, length)
	for _, idx := range boundaryIndices {
		if idx < 0 || idx >= length {
			return nil, fmt.Errorf("boundary index %d is out of range [0, %d)", idx, length)
		}
		s[idx] = true
	}
	return s, nil
}

// SignalFromInts converts a 0/1 array (the interchange format) into a Signal.
func SignalFromInts(values []int) (Signal, error) {
	s := make(Signal, len(values))
	for idx, v := range values {
		switch v {
		case 0:
		case 1:
			s[idx] = true
		default:
			return nil, fmt.Errorf("value %d at index %d is neither 0 nor 1", v, idx)
		}
	}
	return s, nil
}

// Indices returns the ascending list of boundary frame indices.
func (s Signal) Indices() []int {
	var result []int
	for idx, isBoundary := range s {
		if isBoundary {
			result = append(result, idx)
		}
	}
	return result
}

func (s Signal) Count() int {
	count := 0
	for _, isBoundary := range s {
		if isBoundary {
			count++
		}
	}
	return count
}

func (s Signal) Clone() Signal {
	if s == nil {
		return nil
	}
	return append(Signal{}, s...)
}

func (s Signal) Ints() []int {
	result := make([]int, len(s))
	for idx, isBoundary := range s {
		if isBoundary {
			result[idx] = 1
		}
	}
	return result
}

// String renders the signal as a string of zeros and ones.
func (s Signal) String() string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, isBoundary := range s {
		if isBoundary {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}

func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ints())
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	var values []int
	if err := json.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("unable to unmarshal a signal from JSON: %w", err)
	}
	parsed, err := SignalFromInts(values)
	if err != nil {
		return fmt.Errorf("unable to parse the signal: %w", err)
	}
	*s = parsed
	return nil
}

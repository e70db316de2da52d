package indicator

import (
	"sync"

	indicators "github.com/lmpizarro/go_ehlers_indicators"
	"golang.org/x/exp/constraints"
)

// MAMA is the MESA Adaptive Moving Average over a window of n
// measurements. Until the window is filled it just echoes the input.
type MAMA[T constraints.Integer | constraints.Float] struct {
	FastLimit         float64
	SlowLimit         float64
	values            []float64
	ordered           []float64
	curIdx            int
	measurementsCount int
	locker            sync.Mutex
}

var _ MovingAverage[float64] = (*MAMA[float64])(nil)

func NewMAMADefault[T constraints.Integer | constraints.Float](
	n int,
) *MAMA[T] {
	return NewMAMA[T](n, 0.5, 0.05)
}

func NewMAMA[T constraints.Integer | constraints.Float](
	n int,
	fastLimit float64,
	slowLimit float64,
) *MAMA[T] {
	return &MAMA[T]{
		FastLimit: fastLimit,
		SlowLimit: slowLimit,
		values:    make([]float64, n),
		ordered:   make([]float64, n),
	}
}

func (m *MAMA[T]) Update(v T) T {
	m.locker.Lock()
	defer m.locker.Unlock()

	m.values[m.curIdx] = float64(v)
	m.curIdx = (m.curIdx + 1) % len(m.values)

	// raw      3 4 5 6 7 0 1 2
	//                  ^ curIdx
	// ordered  0 1 2 3 4 5 6 7
	copy(m.ordered, m.values[m.curIdx:])
	copy(m.ordered[len(m.values)-m.curIdx:], m.values)

	m.measurementsCount++
	if m.measurementsCount < len(m.values) {
		return v
	}

	result := indicators.MAMA(m.ordered, m.FastLimit, m.SlowLimit)
	return T(result[len(result)-1])
}

func (m *MAMA[T]) InitPeriod() int64 {
	return int64(len(m.values))
}

func (m *MAMA[T]) Valid() bool {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.measurementsCount >= len(m.values)
}

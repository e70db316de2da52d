package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMAMA(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		m := NewMAMADefault[int64](50)
		for i := range 100 {
			require.Equal(t, int64(100), m.Update(100), i)
		}
		require.True(t, m.Valid())
	})

	t.Run("ramp", func(t *testing.T) {
		m := NewMAMA[int64](50, 0.3, 0.05)
		for i := int64(0); i <= 100; i++ {
			v := m.Update(i)
			require.True(t, i/2 <= v && v <= i, "%d: %d", i, v)
		}
	})
}

func TestSMA(t *testing.T) {
	m := NewSMA[float64](4)
	require.Equal(t, int64(4), m.InitPeriod())

	require.InDelta(t, 1.0, m.Update(1), 1e-9)
	require.InDelta(t, 2.0, m.Update(3), 1e-9)
	require.False(t, m.Valid())
	require.InDelta(t, 2.0, m.Update(2), 1e-9)
	require.InDelta(t, 2.5, m.Update(4), 1e-9)
	require.True(t, m.Valid())

	// the window slides: 1 drops out
	require.InDelta(t, 3.25, m.Update(4), 1e-9)
}

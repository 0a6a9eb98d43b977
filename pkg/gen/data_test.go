package gen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	require.Equal(t, 0, Clamp(-5, 0, 10))
	require.Equal(t, 10, Clamp(15, 0, 10))
	require.Equal(t, 7, Clamp(7, 0, 10))
	require.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
}

func TestSpan(t *testing.T) {
	lo, hi := Span([]int{4, -2, 9, 3}, func(v int) int { return v })
	require.Equal(t, -2, lo)
	require.Equal(t, 9, hi)

	type pt struct{ x float32 }
	flo, fhi := Span([]pt{{0.3}, {0.1}, {0.7}}, func(p pt) float32 { return p.x })
	require.Equal(t, float32(0.1), flo)
	require.Equal(t, float32(0.7), fhi)

	zlo, zhi := Span([]int{}, func(v int) int { return v })
	require.Equal(t, 0, zlo)
	require.Equal(t, 0, zhi)
}

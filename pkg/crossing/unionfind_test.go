package crossing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionFind(t *testing.T) {
	u := newUnionFind(6)
	require.True(t, u.union(0, 3))
	require.True(t, u.union(4, 3))
	require.False(t, u.union(0, 4)) // already joined, transitively
	require.True(t, u.union(5, 2))
	require.Equal(t, u.find(0), u.find(4))
	require.NotEqual(t, u.find(0), u.find(1))
	require.Equal(t, [][]int{{0, 3, 4}, {1}, {2, 5}}, u.groups())
}

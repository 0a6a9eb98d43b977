package crossing

// unionFind is a disjoint-set forest over the integers [0, n)
type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		rank:   make([]uint8, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union joins the sets containing a and b, and returns true if they were previously separate
func (u *unionFind) union(a, b int) bool {
	ra := u.find(a)
	rb := u.find(b)
	if ra == rb {
		return false
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return true
}

// groups returns the members of each set. Sets are ordered by their lowest member,
// and members within a set are ascending.
func (u *unionFind) groups() [][]int {
	index := map[int]int{}
	out := [][]int{}
	for i := range u.parent {
		root := u.find(i)
		g, ok := index[root]
		if !ok {
			g = len(out)
			index[root] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}

package layout

// disjointSet is a union-find over item indices.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) {
	rootA := d.find(a)
	rootB := d.find(b)
	if rootA != rootB {
		d.parent[rootB] = rootA
	}
}

// groupIndices partitions item indices into maximal sets of transitively
// overlapping items. Groups are ordered by their first member in input order
// and members keep input order.
func groupIndices(items []Item) [][]int {
	set := newDisjointSet(len(items))
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if Overlaps(items[i], items[j]) {
				set.union(i, j)
			}
		}
	}

	position := make(map[int]int)
	var groups [][]int
	for i := range items {
		root := set.find(i)
		idx, ok := position[root]
		if !ok {
			idx = len(groups)
			position[root] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], i)
	}
	return groups
}

// Group partitions items into overlap groups.
func Group(items []Item) [][]Item {
	indexGroups := groupIndices(items)
	groups := make([][]Item, 0, len(indexGroups))
	for _, members := range indexGroups {
		group := make([]Item, 0, len(members))
		for _, i := range members {
			group = append(group, items[i])
		}
		groups = append(groups, group)
	}
	return groups
}

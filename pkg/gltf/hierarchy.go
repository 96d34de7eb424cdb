package gltf

import "github.com/Faultbox/gltfexport/pkg/scene"

// parentLink records one hierarchy marker in arrival order. A root marker
// carries parent == scene.RootParent.
type parentLink struct {
	child  int
	parent int
}

// Flattener converts per-object parent pointers into child lists. Parent
// links are recorded with SetParent/MarkRoot, checked with Validate and
// turned into a Hierarchy with BuildChildLists.
//
// Objects that never receive a marker are detached: they are excluded from
// the resulting tree entirely.
type Flattener struct {
	n       int
	links   []parentLink
	parents []int // built by Validate; scene.Detached where unmarked
}

// NewFlattener returns a flattener over objects indexed 0..objectCount-1.
func NewFlattener(objectCount int) *Flattener {
	return &Flattener{n: objectCount}
}

// SetParent records that child is parented under parent.
func (f *Flattener) SetParent(child, parent int) {
	f.links = append(f.links, parentLink{child: child, parent: parent})
}

// MarkRoot records that child is a hierarchy root.
func (f *Flattener) MarkRoot(child int) {
	f.links = append(f.links, parentLink{child: child, parent: scene.RootParent})
}

// Validate checks all recorded links: every parent reference must be in
// range, no object may be assigned a parent twice, and the parent relation
// must be cycle-free. Cycles are found with a tortoise-and-hare walk over
// the parent function; the reported object is the one the forward scan
// meets on the cycle, which is not necessarily its smallest member.
func (f *Flattener) Validate() error {
	parents := make([]int, f.n)
	for i := range parents {
		parents[i] = scene.Detached
	}
	for _, l := range f.links {
		if l.child < 0 || l.child >= f.n {
			return structuralf("object index %d out of range [0,%d)", l.child, f.n)
		}
		if l.parent != scene.RootParent && (l.parent < 0 || l.parent >= f.n) {
			return structuralf("parent reference out of range: object %d refers to %d", l.child, l.parent)
		}
		if parents[l.child] != scene.Detached {
			return structuralf("multiple parents assigned to object %d", l.child)
		}
		parents[l.child] = l.parent
	}

	// step follows the parent function, with -1 as the terminal sentinel
	// for roots and detached objects alike.
	step := func(i int) int {
		if i < 0 {
			return -1
		}
		if p := parents[i]; p >= 0 {
			return p
		}
		return -1
	}

	safe := make([]bool, f.n)
	for i := 0; i < f.n; i++ {
		if safe[i] || parents[i] == scene.Detached {
			continue
		}
		tortoise, hare := i, i
		for {
			tortoise = step(tortoise)
			hare = step(step(hare))
			if hare < 0 {
				// Chain terminates; everything on it is acyclic.
				for j := i; j >= 0 && !safe[j]; j = step(j) {
					safe[j] = true
				}
				break
			}
			if tortoise == hare {
				return structuralf("hierarchy cycle detected at object %d", tortoise)
			}
		}
	}

	f.parents = parents
	return nil
}

// Hierarchy is the derived child-list form of a validated parent mapping.
type Hierarchy struct {
	Children [][]int // direct children per object, ordered by discovery
	Roots    []int   // objects marked root, in index order
	InTree   []bool  // whether the object carries a parent marker
}

// BuildChildLists computes the child list of every object and the ordered
// root list in two linear passes: a counting pass feeding a prefix sum,
// then a scatter pass. Validate must have been called first.
func (f *Flattener) BuildChildLists() (*Hierarchy, error) {
	if f.parents == nil {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	counts := make([]int, f.n)
	for _, p := range f.parents {
		if p >= 0 {
			counts[p]++
		}
	}
	offsets := make([]int, f.n+1)
	for i, c := range counts {
		offsets[i+1] = offsets[i] + c
	}

	backing := make([]int, offsets[f.n])
	cursors := make([]int, f.n)
	copy(cursors, offsets[:f.n])
	for child, p := range f.parents {
		if p >= 0 {
			backing[cursors[p]] = child
			cursors[p]++
		}
	}

	h := &Hierarchy{
		Children: make([][]int, f.n),
		InTree:   make([]bool, f.n),
	}
	for i := 0; i < f.n; i++ {
		if lo, hi := offsets[i], offsets[i+1]; hi > lo {
			h.Children[i] = backing[lo:hi:hi]
		}
		switch f.parents[i] {
		case scene.Detached:
		case scene.RootParent:
			h.InTree[i] = true
			h.Roots = append(h.Roots, i)
		default:
			h.InTree[i] = true
		}
	}
	return h, nil
}

package gltf

import (
	"sort"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// canonicalAssignments returns a sorted copy of an object's assignment
// list: ascending by mesh index, then by material index, with
// scene.NoMaterial sorting below every real material. This sequence is the
// mesh deduplication key.
func canonicalAssignments(as []scene.Assignment) []scene.Assignment {
	c := make([]scene.Assignment, len(as))
	copy(c, as)
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Mesh != c[j].Mesh {
			return c[i].Mesh < c[j].Mesh
		}
		return c[i].Material < c[j].Material
	})
	return c
}

// meshDedup maps canonical assignment sequences to output mesh-group ids.
// Group id equality is equivalent to canonical sequence equality, and the
// output mesh array grows in lockstep with the registry.
type meshDedup struct {
	groups [][]scene.Assignment // registry; index == group id
}

// lookup returns the group id for a canonical sequence, allocating a new
// id on first occurrence. Candidates with a different length are rejected
// before any element comparison.
func (d *meshDedup) lookup(canonical []scene.Assignment) (id int, existed bool) {
	for gid, g := range d.groups {
		if len(g) != len(canonical) {
			continue
		}
		match := true
		for i := range g {
			if g[i] != canonical[i] {
				match = false
				break
			}
		}
		if match {
			return gid, true
		}
	}
	d.groups = append(d.groups, canonical)
	return len(d.groups) - 1, false
}

// referenced reports which input meshes appear in any registered group.
func (d *meshDedup) referenced(meshCount int) []bool {
	seen := make([]bool, meshCount)
	for _, g := range d.groups {
		for _, a := range g {
			if a.Mesh >= 0 && a.Mesh < meshCount {
				seen[a.Mesh] = true
			}
		}
	}
	return seen
}

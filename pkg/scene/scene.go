// Package scene defines the in-memory scene model consumed by the exporter.
// Callers build objects, meshes, materials, textures and images with these
// types and feed them to a gltf.Session in dependency order.
package scene

import "github.com/go-gl/mathgl/mgl32"

// Parent values for Object.Parent beyond real object indices.
const (
	// RootParent marks an object as a hierarchy root.
	RootParent = -1
	// Detached marks an object carrying no hierarchy marker at all.
	// Detached objects never appear in the exported node tree.
	Detached = -2
)

// NoMaterial is the Assignment.Material value for an unmaterialed primitive.
const NoMaterial = -1

// Assignment binds one mesh, and optionally one material, to an object.
type Assignment struct {
	Mesh     int // index of a previously added mesh
	Material int // index of a previously added material, or NoMaterial
}

// Transform is an optional object transform: either a full matrix or a
// decomposed translation/rotation/scale. When Matrix is set the decomposed
// fields are ignored.
type Transform struct {
	Matrix      *mgl32.Mat4 // column-major, overrides the TRS fields
	Translation *mgl32.Vec3
	Rotation    *mgl32.Quat
	Scale       *mgl32.Vec3
}

// IsIdentity reports whether the transform carries no effective change.
func (t *Transform) IsIdentity() bool {
	if t == nil {
		return true
	}
	if t.Matrix != nil {
		return *t.Matrix == mgl32.Ident4()
	}
	return t.Translation == nil && t.Rotation == nil && t.Scale == nil
}

// Object is one entry of a scene hierarchy. Objects are addressed by their
// dense index in Scene.Objects; Parent refers to that index space.
type Object struct {
	Name        string
	Parent      int            // parent index, RootParent or Detached
	Transform   *Transform     // nil means identity
	Assignments []Assignment   // ordered mesh/material bindings
	Extras      map[uint32]any // custom fields, keyed by numeric id
}

// Scene is one object hierarchy to export.
type Scene struct {
	Name    string
	Objects []Object
}

package scene

import "fmt"

// Component identifies the scalar type of an attribute or index component.
type Component uint8

// Component values. Int64/Uint64/Float64 have no glTF representation and
// are either rejected or narrowed, depending on exporter strictness.
const (
	Int8 Component = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

// Size returns the component width in bytes.
func (c Component) Size() int {
	switch c {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// String returns a human-readable component name.
func (c Component) String() string {
	switch c {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("component(%d)", uint8(c))
	}
}

// Semantic identifies what a vertex attribute means.
type Semantic uint8

// Semantic values.
const (
	Position Semantic = iota
	Normal
	Tangent
	TexCoord
	Color
	Joints
	Weights
	Custom // named through the session's NameResolver via AttributeDesc.Key
)

// AttributeDesc describes one vertex attribute inside a mesh's source
// vertex data. Grouped attributes (joint weights spanning several output
// sets) declare Arity > 1 and occupy Arity consecutive element slots.
type AttributeDesc struct {
	Semantic   Semantic
	Set        int       // set index for TexCoord/Color/Joints/Weights
	Component  Component // scalar type of each component
	Count      int       // components per element (1..4)
	Offset     int       // byte offset into MeshData.Data
	Stride     int       // byte stride between vertices; 0 means tightly packed
	Arity      int       // array arity for grouped attributes; 0 or 1 = plain
	Normalized bool
	Key        uint32 // custom field key, used when Semantic == Custom
}

// ElementSize returns the total byte size of one vertex's worth of this
// attribute, including its array arity.
func (a *AttributeDesc) ElementSize() int {
	n := a.Arity
	if n < 1 {
		n = 1
	}
	return a.Component.Size() * a.Count * n
}

// Topology is the primitive assembly mode of a mesh.
type Topology uint8

// Topology values, mirroring the usual GPU primitive modes.
const (
	Points Topology = iota
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

// IndexData is an optional index buffer for a mesh.
type IndexData struct {
	Component Component // Uint8, Uint16 or Uint32 (Uint64 only in permissive mode)
	Count     int
	Data      []byte
}

// MeshData is the vertex payload of one mesh as supplied by the caller.
// Data holds all attributes, possibly interleaved; Attributes describe
// where each one lives.
type MeshData struct {
	Name        string
	VertexCount int
	Data        []byte
	Attributes  []AttributeDesc
	Indices     *IndexData // nil for non-indexed meshes
	Topology    Topology
}

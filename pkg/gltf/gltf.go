// Package gltf serializes scene graphs into glTF 2.0 documents, either as
// a .gltf text document with a sibling .bin payload or as a single .glb
// binary container.
package gltf

import (
	"encoding/json"
	"fmt"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// Version is the glTF specification version written into every document.
const Version = "2.0"

// ComponentType is a glTF accessor component type enum.
type ComponentType uint32

// ComponentType values.
const (
	CompByte          ComponentType = 5120
	CompUnsignedByte  ComponentType = 5121
	CompShort         ComponentType = 5122
	CompUnsignedShort ComponentType = 5123
	CompUnsignedInt   ComponentType = 5125
	CompFloat         ComponentType = 5126
)

// Size returns the component width in bytes.
func (c ComponentType) Size() int {
	switch c {
	case CompByte, CompUnsignedByte:
		return 1
	case CompShort, CompUnsignedShort:
		return 2
	case CompUnsignedInt, CompFloat:
		return 4
	default:
		return 0
	}
}

// String returns the schema name of the component type.
func (c ComponentType) String() string {
	switch c {
	case CompByte:
		return "BYTE"
	case CompUnsignedByte:
		return "UNSIGNED_BYTE"
	case CompShort:
		return "SHORT"
	case CompUnsignedShort:
		return "UNSIGNED_SHORT"
	case CompUnsignedInt:
		return "UNSIGNED_INT"
	case CompFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", uint32(c))
	}
}

// AccessorType is the element shape tag of an accessor.
type AccessorType string

// AccessorType values.
const (
	Scalar AccessorType = "SCALAR"
	Vec2   AccessorType = "VEC2"
	Vec3   AccessorType = "VEC3"
	Vec4   AccessorType = "VEC4"
	Mat2   AccessorType = "MAT2"
	Mat3   AccessorType = "MAT3"
	Mat4   AccessorType = "MAT4"
)

// accessorTypeFor maps a component count to the accessor shape tag.
func accessorTypeFor(count int) (AccessorType, bool) {
	switch count {
	case 1:
		return Scalar, true
	case 2:
		return Vec2, true
	case 3:
		return Vec3, true
	case 4:
		return Vec4, true
	case 9:
		return Mat3, true
	case 16:
		return Mat4, true
	default:
		return "", false
	}
}

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// Primitive modes.
const (
	ModePoints        = 0
	ModeLines         = 1
	ModeLineLoop      = 2
	ModeLineStrip     = 3
	ModeTriangles     = 4
	ModeTriangleStrip = 5
	ModeTriangleFan   = 6
)

// Sampler filters.
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987
)

// Sampler wrap modes.
const (
	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648
	WrapRepeat         = 10497
)

// Extension names in the closed catalogue this exporter can declare.
const (
	ExtMaterialsUnlit   = "KHR_materials_unlit"
	ExtTextureTransform = "KHR_texture_transform"
	ExtEmissiveStrength = "KHR_materials_emissive_strength"
	ExtTextureWebP      = "EXT_texture_webp"
	ExtTextureBasisu    = "KHR_texture_basisu"
)

// Asset is the mandatory document header.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Buffer is one entry of the buffers section.
type Buffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri,omitempty"`
}

// BufferView is a strided byte range into a buffer.
type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
	Target     int `json:"target,omitempty"`
}

// Accessor is a typed, shaped view over a byte range.
type Accessor struct {
	BufferView    *int          `json:"bufferView,omitempty"`
	ByteOffset    int           `json:"byteOffset,omitempty"`
	ComponentType ComponentType `json:"componentType"`
	Count         int           `json:"count"`
	Type          AccessorType  `json:"type"`
	Normalized    bool          `json:"normalized,omitempty"`
	Min           []float32     `json:"min,omitempty"`
	Max           []float32     `json:"max,omitempty"`
}

// Primitive is one drawable part of a mesh.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
	Material   *int           `json:"material,omitempty"`
}

// Mesh is one entry of the meshes section.
type Mesh struct {
	Primitives []Primitive `json:"primitives"`
	Name       string      `json:"name,omitempty"`
}

// TextureInfo references a texture from a material slot.
type TextureInfo struct {
	Index      int            `json:"index"`
	TexCoord   int            `json:"texCoord,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// PBRMetallicRoughness is the core material model.
type PBRMetallicRoughness struct {
	BaseColorFactor  *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor   *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor  *float32     `json:"roughnessFactor,omitempty"`
}

// Material is one entry of the materials section.
type Material struct {
	Name           string                `json:"name,omitempty"`
	PBR            *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	EmissiveFactor *[3]float32           `json:"emissiveFactor,omitempty"`
	AlphaMode      string                `json:"alphaMode,omitempty"`
	AlphaCutoff    *float32              `json:"alphaCutoff,omitempty"`
	DoubleSided    bool                  `json:"doubleSided,omitempty"`
	Extensions     map[string]any        `json:"extensions,omitempty"`
}

// Sampler is one entry of the samplers section.
type Sampler struct {
	MagFilter int `json:"magFilter,omitempty"`
	MinFilter int `json:"minFilter,omitempty"`
	WrapS     int `json:"wrapS,omitempty"`
	WrapT     int `json:"wrapT,omitempty"`
}

// Texture is one entry of the textures section. Non-core image encodings
// move the source reference into Extensions.
type Texture struct {
	Sampler    *int           `json:"sampler,omitempty"`
	Source     *int           `json:"source,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Image is one entry of the images section: either an external URI or an
// embedded buffer view with a MIME type.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

// Node is one entry of the nodes section.
type Node struct {
	Name        string         `json:"name,omitempty"`
	Children    []int          `json:"children,omitempty"`
	Matrix      *[16]float32   `json:"matrix,omitempty"`
	Translation *[3]float32    `json:"translation,omitempty"`
	Rotation    *[4]float32    `json:"rotation,omitempty"`
	Scale       *[3]float32    `json:"scale,omitempty"`
	Mesh        *int           `json:"mesh,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
}

// SceneEntry is one entry of the scenes section.
type SceneEntry struct {
	Nodes []int  `json:"nodes,omitempty"`
	Name  string `json:"name,omitempty"`
}

// componentTypeFor maps a scene component to the glTF enum. Narrowed
// reports whether the value had to be narrowed to fit (64-bit inputs in
// permissive mode); ok is false when no representation exists at all.
func componentTypeFor(c scene.Component) (ct ComponentType, narrowed, ok bool) {
	switch c {
	case scene.Int8:
		return CompByte, false, true
	case scene.Uint8:
		return CompUnsignedByte, false, true
	case scene.Int16:
		return CompShort, false, true
	case scene.Uint16:
		return CompUnsignedShort, false, true
	case scene.Uint32:
		return CompUnsignedInt, false, true
	case scene.Float32:
		return CompFloat, false, true
	case scene.Int32:
		// Signed 32-bit is wider than the schema's signed types but its
		// bytes are representable as-is; relabeled in permissive mode.
		return CompUnsignedInt, true, true
	default:
		// 64-bit components have no representation at all.
		return 0, false, false
	}
}

// wrapFor maps a scene wrap mode to the sampler enum.
func wrapFor(w scene.Wrap) int {
	switch w {
	case scene.ClampToEdge:
		return WrapClampToEdge
	case scene.MirroredRepeat:
		return WrapMirroredRepeat
	default:
		return WrapRepeat
	}
}

// minFilterFor folds the separate minification and mip filters into the
// combined glTF minFilter enum. A zero result means "unspecified".
func minFilterFor(min, mip scene.Filter) int {
	switch min {
	case scene.Nearest:
		switch mip {
		case scene.Nearest:
			return FilterNearestMipmapNearest
		case scene.Linear:
			return FilterNearestMipmapLinear
		default:
			return FilterNearest
		}
	case scene.Linear:
		switch mip {
		case scene.Nearest:
			return FilterLinearMipmapNearest
		case scene.Linear:
			return FilterLinearMipmapLinear
		default:
			return FilterLinear
		}
	default:
		return 0
	}
}

// magFilterFor maps a scene magnification filter to the sampler enum.
func magFilterFor(f scene.Filter) int {
	switch f {
	case scene.Nearest:
		return FilterNearest
	case scene.Linear:
		return FilterLinear
	default:
		return 0
	}
}

// modeFor maps a scene topology to the primitive mode enum.
func modeFor(t scene.Topology) int {
	switch t {
	case scene.Points:
		return ModePoints
	case scene.Lines:
		return ModeLines
	case scene.LineLoop:
		return ModeLineLoop
	case scene.LineStrip:
		return ModeLineStrip
	case scene.TriangleStrip:
		return ModeTriangleStrip
	case scene.TriangleFan:
		return ModeTriangleFan
	default:
		return ModeTriangles
	}
}

// attributeName builds the primitive attribute key for a descriptor. The
// set index for the arity'th expanded slot of a grouped attribute is
// desc.Set + slot. Custom attributes resolve through the caller-supplied
// name resolver and are prefixed with an underscore as the schema requires.
func attributeName(a *scene.AttributeDesc, slot int, resolve func(uint32) (string, bool)) (string, bool) {
	set := a.Set + slot
	switch a.Semantic {
	case scene.Position:
		return "POSITION", true
	case scene.Normal:
		return "NORMAL", true
	case scene.Tangent:
		return "TANGENT", true
	case scene.TexCoord:
		return fmt.Sprintf("TEXCOORD_%d", set), true
	case scene.Color:
		return fmt.Sprintf("COLOR_%d", set), true
	case scene.Joints:
		return fmt.Sprintf("JOINTS_%d", set), true
	case scene.Weights:
		return fmt.Sprintf("WEIGHTS_%d", set), true
	case scene.Custom:
		if resolve == nil {
			return "", false
		}
		name, ok := resolve(a.Key)
		if !ok {
			return "", false
		}
		return "_" + name, true
	default:
		return "", false
	}
}

// marshalEntity encodes one section element. Kept in one place so every
// section shares identical encoding settings (compact, deterministic).
func marshalEntity(v any) ([]byte, error) {
	return json.Marshal(v)
}

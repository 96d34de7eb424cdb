// Package scenefile loads the YAML scene descriptions the CLI converts.
// A scene file declares images, textures, materials, meshes and objects;
// the loader validates cross-references and lowers everything into the
// pkg/scene model a conversion session accepts.
package scenefile

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// File is the parsed form of one scene description.
type File struct {
	Name      string     `yaml:"name"`
	Images    []Image    `yaml:"images"`
	Textures  []Texture  `yaml:"textures"`
	Materials []Material `yaml:"materials"`
	Meshes    []Mesh     `yaml:"meshes"`
	Objects   []Object   `yaml:"objects"`
}

// Image declares one source image, loaded from a file next to the scene
// description.
type Image struct {
	Name  string `yaml:"name"`
	File  string `yaml:"file"`
	Embed bool   `yaml:"embed"`
}

// Texture declares sampling state over an image.
type Texture struct {
	Image     int    `yaml:"image"`
	WrapS     string `yaml:"wrap_s"`
	WrapT     string `yaml:"wrap_t"`
	MinFilter string `yaml:"min_filter"`
	MipFilter string `yaml:"mip_filter"`
	MagFilter string `yaml:"mag_filter"`
}

// TextureRef binds a material slot to a texture.
type TextureRef struct {
	Texture  int `yaml:"texture"`
	TexCoord int `yaml:"tex_coord"`
}

// Material declares a PBR material.
type Material struct {
	Name             string      `yaml:"name"`
	BaseColor        *[4]float32 `yaml:"base_color"`
	BaseColorTexture *TextureRef `yaml:"base_color_texture"`
	Metallic         *float32    `yaml:"metallic"`
	Roughness        *float32    `yaml:"roughness"`
	Emissive         *[3]float32 `yaml:"emissive"`
	Unlit            bool        `yaml:"unlit"`
	DoubleSided      bool        `yaml:"double_sided"`
}

// Mesh declares per-vertex arrays; all non-empty arrays must have the
// same length as positions.
type Mesh struct {
	Name      string       `yaml:"name"`
	Positions [][3]float32 `yaml:"positions"`
	Normals   [][3]float32 `yaml:"normals"`
	TexCoords [][2]float32 `yaml:"texcoords"`
	Indices   []uint32     `yaml:"indices"`
}

// Assignment binds one mesh (and optionally one material) to an object.
type Assignment struct {
	Mesh     int  `yaml:"mesh"`
	Material *int `yaml:"material"`
}

// Object declares one hierarchy entry. Exactly one of root: true or a
// parent index puts the object into the tree; neither leaves it detached.
type Object struct {
	Name        string       `yaml:"name"`
	Root        bool         `yaml:"root"`
	Parent      *int         `yaml:"parent"`
	Translation *[3]float32  `yaml:"translation"`
	Rotation    *[4]float32  `yaml:"rotation"` // quaternion x,y,z,w
	Scale       *[3]float32  `yaml:"scale"`
	Assignments []Assignment `yaml:"assignments"`
}

// Load parses and validates a scene description.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses and validates scene description bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene description: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate rejects dangling references and malformed meshes before any
// session work starts.
func (f *File) validate() error {
	for i, t := range f.Textures {
		if t.Image < 0 || t.Image >= len(f.Images) {
			return fmt.Errorf("texture %d references image %d of %d", i, t.Image, len(f.Images))
		}
	}
	for _, m := range f.Materials {
		if ref := m.BaseColorTexture; ref != nil {
			if ref.Texture < 0 || ref.Texture >= len(f.Textures) {
				return fmt.Errorf("material %q references texture %d of %d", m.Name, ref.Texture, len(f.Textures))
			}
		}
	}
	for i, m := range f.Meshes {
		n := len(m.Positions)
		if len(m.Normals) > 0 && len(m.Normals) != n {
			return fmt.Errorf("mesh %d: %d normals for %d positions", i, len(m.Normals), n)
		}
		if len(m.TexCoords) > 0 && len(m.TexCoords) != n {
			return fmt.Errorf("mesh %d: %d texcoords for %d positions", i, len(m.TexCoords), n)
		}
		for _, idx := range m.Indices {
			if int(idx) >= n {
				return fmt.Errorf("mesh %d: index %d out of %d vertices", i, idx, n)
			}
		}
	}
	for i, o := range f.Objects {
		if o.Root && o.Parent != nil {
			return fmt.Errorf("object %d is both root and parented", i)
		}
		if o.Parent != nil && (*o.Parent < 0 || *o.Parent >= len(f.Objects)) {
			return fmt.Errorf("object %d references parent %d of %d", i, *o.Parent, len(f.Objects))
		}
		for _, a := range o.Assignments {
			if a.Mesh < 0 || a.Mesh >= len(f.Meshes) {
				return fmt.Errorf("object %d references mesh %d of %d", i, a.Mesh, len(f.Meshes))
			}
			if a.Material != nil && (*a.Material < 0 || *a.Material >= len(f.Materials)) {
				return fmt.Errorf("object %d references material %d of %d", i, *a.Material, len(f.Materials))
			}
		}
	}
	return nil
}

// LoadImages reads every declared image file relative to dir.
func (f *File) LoadImages(dir string) ([]scene.ImageData, error) {
	out := make([]scene.ImageData, len(f.Images))
	for i, img := range f.Images {
		blob, err := os.ReadFile(filepath.Join(dir, img.File))
		if err != nil {
			return nil, fmt.Errorf("reading image %q: %w", img.Name, err)
		}
		out[i] = scene.ImageData{
			Name:   img.Name,
			Blob:   blob,
			Format: formatForFile(img.File),
			Embed:  img.Embed,
		}
	}
	return out, nil
}

// formatForFile maps a filename extension to an image format tag.
func formatForFile(name string) scene.ImageFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return scene.FormatPNG
	case ".jpg", ".jpeg":
		return scene.FormatJPEG
	case ".webp":
		return scene.FormatWebP
	case ".ktx2":
		return scene.FormatKTX2
	case ".bmp":
		return scene.FormatBMP
	case ".tif", ".tiff":
		return scene.FormatTIFF
	default:
		return scene.FormatPNG
	}
}

// SceneTextures lowers the texture declarations.
func (f *File) SceneTextures() []scene.TextureData {
	out := make([]scene.TextureData, len(f.Textures))
	for i, t := range f.Textures {
		out[i] = scene.TextureData{
			Image:     t.Image,
			WrapS:     wrapFor(t.WrapS),
			WrapT:     wrapFor(t.WrapT),
			MinFilter: filterFor(t.MinFilter),
			MipFilter: filterFor(t.MipFilter),
			MagFilter: filterFor(t.MagFilter),
		}
	}
	return out
}

func wrapFor(s string) scene.Wrap {
	switch s {
	case "clamp":
		return scene.ClampToEdge
	case "mirror":
		return scene.MirroredRepeat
	default:
		return scene.Repeat
	}
}

func filterFor(s string) scene.Filter {
	switch s {
	case "nearest":
		return scene.Nearest
	case "linear":
		return scene.Linear
	default:
		return scene.FilterNone
	}
}

// SceneMaterials lowers the material declarations.
func (f *File) SceneMaterials() []scene.MaterialData {
	out := make([]scene.MaterialData, len(f.Materials))
	for i, m := range f.Materials {
		mat := scene.MaterialData{
			Name:        m.Name,
			BaseColor:   [4]float32{1, 1, 1, 1},
			Metallic:    1,
			Roughness:   1,
			Unlit:       m.Unlit,
			DoubleSided: m.DoubleSided,
		}
		if m.BaseColor != nil {
			mat.BaseColor = *m.BaseColor
		}
		if m.Metallic != nil {
			mat.Metallic = *m.Metallic
		}
		if m.Roughness != nil {
			mat.Roughness = *m.Roughness
		}
		if m.Emissive != nil {
			mat.Emissive = *m.Emissive
		}
		if m.BaseColorTexture != nil {
			mat.BaseColorTexture = &scene.TextureRef{
				Texture:  m.BaseColorTexture.Texture,
				TexCoord: m.BaseColorTexture.TexCoord,
			}
		}
		out[i] = mat
	}
	return out
}

// SceneMeshes lowers the vertex arrays into mesh payloads: one tightly
// packed block per attribute, indices narrowed to the smallest component
// wide enough for the vertex count.
func (f *File) SceneMeshes() []scene.MeshData {
	out := make([]scene.MeshData, len(f.Meshes))
	for i := range f.Meshes {
		out[i] = lowerMesh(&f.Meshes[i])
	}
	return out
}

func lowerMesh(m *Mesh) scene.MeshData {
	n := len(m.Positions)
	var data []byte
	var attrs []scene.AttributeDesc

	putVec := func(semantic scene.Semantic, comps int, write func(v int) []float32) {
		attrs = append(attrs, scene.AttributeDesc{
			Semantic:  semantic,
			Component: scene.Float32,
			Count:     comps,
			Offset:    len(data),
			Stride:    comps * 4,
		})
		for v := 0; v < n; v++ {
			for _, x := range write(v) {
				data = binary.LittleEndian.AppendUint32(data, math.Float32bits(x))
			}
		}
	}

	putVec(scene.Position, 3, func(v int) []float32 { return m.Positions[v][:] })
	if len(m.Normals) > 0 {
		putVec(scene.Normal, 3, func(v int) []float32 { return m.Normals[v][:] })
	}
	if len(m.TexCoords) > 0 {
		putVec(scene.TexCoord, 2, func(v int) []float32 { return m.TexCoords[v][:] })
	}

	md := scene.MeshData{
		Name:        m.Name,
		VertexCount: n,
		Data:        data,
		Attributes:  attrs,
		Topology:    scene.Triangles,
	}
	if len(m.Indices) > 0 {
		md.Indices = lowerIndices(m.Indices, n)
	}
	return md
}

func lowerIndices(indices []uint32, vertexCount int) *scene.IndexData {
	if vertexCount <= math.MaxUint16 {
		buf := make([]byte, 0, len(indices)*2)
		for _, idx := range indices {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(idx))
		}
		return &scene.IndexData{Component: scene.Uint16, Count: len(indices), Data: buf}
	}
	buf := make([]byte, 0, len(indices)*4)
	for _, idx := range indices {
		buf = binary.LittleEndian.AppendUint32(buf, idx)
	}
	return &scene.IndexData{Component: scene.Uint32, Count: len(indices), Data: buf}
}

// Scene lowers the object declarations into one exportable scene.
func (f *File) Scene() *scene.Scene {
	sc := &scene.Scene{Name: f.Name}
	for i := range f.Objects {
		o := &f.Objects[i]
		obj := scene.Object{Name: o.Name, Parent: scene.Detached}
		if o.Root {
			obj.Parent = scene.RootParent
		} else if o.Parent != nil {
			obj.Parent = *o.Parent
		}
		if o.Translation != nil || o.Rotation != nil || o.Scale != nil {
			obj.Transform = lowerTransform(o)
		}
		for _, a := range o.Assignments {
			mat := scene.NoMaterial
			if a.Material != nil {
				mat = *a.Material
			}
			obj.Assignments = append(obj.Assignments, scene.Assignment{Mesh: a.Mesh, Material: mat})
		}
		sc.Objects = append(sc.Objects, obj)
	}
	return sc
}

func lowerTransform(o *Object) *scene.Transform {
	t := &scene.Transform{}
	if o.Translation != nil {
		v := mgl32Vec3(*o.Translation)
		t.Translation = &v
	}
	if o.Rotation != nil {
		q := mgl32Quat(*o.Rotation)
		t.Rotation = &q
	}
	if o.Scale != nil {
		v := mgl32Vec3(*o.Scale)
		t.Scale = &v
	}
	return t
}

func mgl32Vec3(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3(v)
}

func mgl32Quat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

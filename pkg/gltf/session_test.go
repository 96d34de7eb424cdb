package gltf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	qgltf "github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

func floatBytes(vals ...float32) []byte {
	out := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func uint16Bytes(vals ...uint16) []byte {
	out := make([]byte, 0, 2*len(vals))
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

// triangleMesh is a three-vertex indexed mesh with tightly packed float32
// positions.
func triangleMesh(name string) *scene.MeshData {
	return &scene.MeshData{
		Name:        name,
		VertexCount: 3,
		Data: floatBytes(
			0, 0, 0,
			1, 0, 0,
			0, 1, 2,
		),
		Attributes: []scene.AttributeDesc{
			{Semantic: scene.Position, Component: scene.Float32, Count: 3},
		},
		Indices: &scene.IndexData{
			Component: scene.Uint16,
			Count:     3,
			Data:      uint16Bytes(0, 1, 2),
		},
		Topology: scene.Triangles,
	}
}

func decodeBinary(t *testing.T, data []byte) *qgltf.Document {
	t.Helper()
	var doc qgltf.Document
	if err := qgltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	return &doc
}

func TestSession_BinaryRoundTrip(t *testing.T) {
	s := NewSession(Options{Binary: true, Generator: "exporter-test"})

	img, err := s.AddImage(&scene.ImageData{
		Name: "checker", Width: 2, Height: 2,
		Pixels: bytes.Repeat([]byte{0xFF, 0x00, 0x7F, 0xFF}, 4),
	})
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	tex, err := s.AddTexture(&scene.TextureData{
		Image: img, WrapS: scene.Repeat, WrapT: scene.ClampToEdge,
		MinFilter: scene.Linear, MagFilter: scene.Linear,
	})
	if err != nil {
		t.Fatalf("AddTexture: %v", err)
	}
	mat, err := s.AddMaterial(&scene.MaterialData{
		Name:             "skin",
		BaseColor:        [4]float32{1, 0.5, 0.25, 1},
		BaseColorTexture: &scene.TextureRef{Texture: tex},
		Metallic:         0,
		Roughness:        1,
	})
	if err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	mesh, err := s.AddMesh(triangleMesh("tri"))
	if err != nil {
		t.Fatalf("AddMesh: %v", err)
	}
	tr := mgl32.Vec3{1, 2, 3}
	if _, err := s.AddScene(&scene.Scene{
		Name: "main",
		Objects: []scene.Object{
			{Name: "root", Parent: scene.RootParent},
			{
				Name: "body", Parent: 0,
				Transform:   &scene.Transform{Translation: &tr},
				Assignments: []scene.Assignment{{Mesh: mesh, Material: mat}},
			},
		},
	}); err != nil {
		t.Fatalf("AddScene: %v", err)
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatalf("FinalizeTo: %v", err)
	}

	doc := decodeBinary(t, buf.Bytes())
	if doc.Asset.Generator != "exporter-test" {
		t.Errorf("generator = %q", doc.Asset.Generator)
	}
	if doc.Scene == nil || int(*doc.Scene) != 0 {
		t.Errorf("default scene = %v, want 0", doc.Scene)
	}
	if len(doc.Scenes) != 1 || doc.Scenes[0].Name != "main" {
		t.Fatalf("scenes = %v", doc.Scenes)
	}
	if len(doc.Scenes[0].Nodes) != 1 {
		t.Fatalf("scene roots = %v, want exactly the root node", doc.Scenes[0].Nodes)
	}

	root := doc.Nodes[int(doc.Scenes[0].Nodes[0])]
	if root.Name != "root" || len(root.Children) != 1 {
		t.Fatalf("root node = %+v", root)
	}
	body := doc.Nodes[int(root.Children[0])]
	if body.Name != "body" {
		t.Errorf("child node = %+v", body)
	}
	if body.Translation != [3]float64{1, 2, 3} {
		t.Errorf("translation = %v", body.Translation)
	}
	if body.Mesh == nil {
		t.Fatal("child node has no mesh")
	}

	prims := doc.Meshes[int(*body.Mesh)].Primitives
	if len(prims) != 1 {
		t.Fatalf("primitives = %v", prims)
	}
	prim := prims[0]
	if prim.Material == nil || int(*prim.Material) != mat {
		t.Errorf("primitive material = %v, want %d", prim.Material, mat)
	}
	if prim.Indices == nil {
		t.Fatal("primitive has no indices")
	}
	idxAcc := doc.Accessors[int(*prim.Indices)]
	if idxAcc.ComponentType != qgltf.ComponentUshort || int(idxAcc.Count) != 3 {
		t.Errorf("index accessor = %+v", idxAcc)
	}
	posAcc := doc.Accessors[int(prim.Attributes["POSITION"])]
	if posAcc.ComponentType != qgltf.ComponentFloat || posAcc.Type != qgltf.AccessorVec3 {
		t.Errorf("position accessor = %+v", posAcc)
	}
	if len(posAcc.Min) != 3 || len(posAcc.Max) != 3 {
		t.Fatalf("position bounds = %v %v", posAcc.Min, posAcc.Max)
	}
	if posAcc.Min[2] != 0 || posAcc.Max[2] != 2 {
		t.Errorf("position z bounds = [%g, %g], want [0, 2]", posAcc.Min[2], posAcc.Max[2])
	}

	if len(doc.Materials) != 1 || doc.Materials[0].Name != "skin" {
		t.Errorf("materials = %v", doc.Materials)
	}
	pbr := doc.Materials[0].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil || int(pbr.BaseColorTexture.Index) != tex {
		t.Errorf("pbr = %+v", pbr)
	}
	if len(doc.Textures) != 1 || len(doc.Samplers) != 1 || len(doc.Images) != 1 {
		t.Errorf("texture chain = %d/%d/%d entries", len(doc.Textures), len(doc.Samplers), len(doc.Images))
	}
	if doc.Images[0].MimeType != "image/png" || doc.Images[0].BufferView == nil {
		t.Errorf("image = %+v, want embedded PNG", doc.Images[0])
	}
	if len(doc.Buffers) != 1 || doc.Buffers[0].URI != "" {
		t.Errorf("buffers = %v, want one embedded buffer", doc.Buffers)
	}
}

func TestSession_DeterministicOutput(t *testing.T) {
	build := func() []byte {
		s := NewSession(Options{Binary: true, Generator: "exporter-test"})
		mesh, err := s.AddMesh(triangleMesh("tri"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
			{Parent: scene.RootParent, Assignments: []scene.Assignment{{Mesh: mesh, Material: scene.NoMaterial}}},
		}}); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := s.FinalizeTo(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	if !bytes.Equal(build(), build()) {
		t.Error("two identical sessions produced different bytes")
	}
}

func TestSession_ZeroVertexMesh(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		s := NewSession(Options{})
		_, err := s.AddMesh(&scene.MeshData{Name: "empty"})
		var uerr *UnsupportedFormatError
		if !errors.As(err, &uerr) {
			t.Fatalf("err = %v, want UnsupportedFormatError", err)
		}
		// The failure consumed the session.
		if _, err := s.AddMesh(triangleMesh("tri")); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("after failure err = %v, want ErrSessionClosed", err)
		}
	})

	t.Run("permissive", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		s := NewSession(Options{Binary: true, Permissive: true, Logger: zap.New(core)})
		if _, err := s.AddMesh(&scene.MeshData{Name: "empty"}); err != nil {
			t.Fatalf("AddMesh: %v", err)
		}
		if n := logs.FilterMessage("emitting zero-vertex mesh").Len(); n != 1 {
			t.Errorf("warning logged %d times, want 1", n)
		}
		var buf bytes.Buffer
		if err := s.FinalizeTo(&buf); err != nil {
			t.Fatalf("FinalizeTo: %v", err)
		}
		doc := decodeBinary(t, buf.Bytes())
		if len(doc.Meshes) != 1 {
			t.Errorf("meshes = %d, want the empty mesh emitted", len(doc.Meshes))
		}
	})
}

func TestSession_WideComponents(t *testing.T) {
	wideMesh := func(c scene.Component) *scene.MeshData {
		return &scene.MeshData{
			Name:        "wide",
			VertexCount: 1,
			Data:        make([]byte, c.Size()*4),
			Attributes: []scene.AttributeDesc{
				{Semantic: scene.Joints, Component: c, Count: 4},
			},
		}
	}

	t.Run("int32 strict fails", func(t *testing.T) {
		s := NewSession(Options{})
		if _, err := s.AddMesh(wideMesh(scene.Int32)); err == nil {
			t.Error("expected an error for int32 attributes in strict mode")
		}
	})

	t.Run("int32 permissive relabels", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		s := NewSession(Options{Binary: true, Permissive: true, Logger: zap.New(core)})
		if _, err := s.AddMesh(wideMesh(scene.Int32)); err != nil {
			t.Fatalf("AddMesh: %v", err)
		}
		if logs.FilterMessage("relabeling wide integer attribute").Len() == 0 {
			t.Error("no relabel warning logged")
		}
		var buf bytes.Buffer
		if err := s.FinalizeTo(&buf); err != nil {
			t.Fatalf("FinalizeTo: %v", err)
		}
		doc := decodeBinary(t, buf.Bytes())
		if got := doc.Accessors[0].ComponentType; got != qgltf.ComponentUint {
			t.Errorf("componentType = %v, want unsigned int", got)
		}
	})

	t.Run("float64 always fails", func(t *testing.T) {
		s := NewSession(Options{Permissive: true})
		if _, err := s.AddMesh(wideMesh(scene.Float64)); err == nil {
			t.Error("expected an error for float64 attributes even in permissive mode")
		}
	})
}

func TestSession_MeshGroupDedup(t *testing.T) {
	s := NewSession(Options{Binary: true})
	m0, err := s.AddMesh(triangleMesh("a"))
	if err != nil {
		t.Fatal(err)
	}
	m1, err := s.AddMesh(triangleMesh("b"))
	if err != nil {
		t.Fatal(err)
	}

	// Permuted assignment lists describe the same canonical sequence.
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Parent: scene.RootParent, Assignments: []scene.Assignment{
			{Mesh: m0, Material: scene.NoMaterial}, {Mesh: m1, Material: scene.NoMaterial},
		}},
		{Parent: scene.RootParent, Assignments: []scene.Assignment{
			{Mesh: m1, Material: scene.NoMaterial}, {Mesh: m0, Material: scene.NoMaterial},
		}},
	}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want one shared group", len(doc.Meshes))
	}
	if len(doc.Meshes[0].Primitives) != 2 {
		t.Errorf("primitives = %d, want 2", len(doc.Meshes[0].Primitives))
	}
	a, b := doc.Nodes[0].Mesh, doc.Nodes[1].Mesh
	if a == nil || b == nil || *a != *b {
		t.Errorf("node meshes = %v %v, want shared index", a, b)
	}
}

func TestSession_UnreferencedMeshAppended(t *testing.T) {
	s := NewSession(Options{Binary: true})
	used, err := s.AddMesh(triangleMesh("used"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMesh(triangleMesh("spare")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Parent: scene.RootParent, Assignments: []scene.Assignment{{Mesh: used, Material: scene.NoMaterial}}},
	}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())
	if len(doc.Meshes) != 2 {
		t.Fatalf("meshes = %d, want referenced group plus appended spare", len(doc.Meshes))
	}
	spare := doc.Meshes[1]
	if spare.Name != "spare" {
		t.Errorf("appended mesh name = %q", spare.Name)
	}
	if len(spare.Primitives) != 1 || spare.Primitives[0].Material != nil {
		t.Errorf("appended mesh primitives = %+v, want one with no material", spare.Primitives)
	}
}

func TestSession_DetachedObjectExcluded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewSession(Options{Binary: true, Logger: zap.New(core)})
	mesh, err := s.AddMesh(triangleMesh("tri"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Name: "kept", Parent: scene.RootParent},
		{Name: "loose", Parent: scene.Detached, Assignments: []scene.Assignment{{Mesh: mesh, Material: scene.NoMaterial}}},
	}}); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("object without a parent marker is excluded from the hierarchy").Len() != 1 {
		t.Error("no unused-data warning for detached object carrying data")
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())
	if len(doc.Nodes) != 1 || doc.Nodes[0].Name != "kept" {
		t.Errorf("nodes = %v, want only the marked root", doc.Nodes)
	}
	// The detached object's mesh still lands in the output, unreferenced.
	if len(doc.Meshes) != 1 {
		t.Errorf("meshes = %d, want the spare mesh appended", len(doc.Meshes))
	}
}

func TestSession_BadReferences(t *testing.T) {
	t.Run("texture image", func(t *testing.T) {
		s := NewSession(Options{})
		_, err := s.AddTexture(&scene.TextureData{Image: 0})
		if !errors.Is(err, ErrBadReference) {
			t.Errorf("err = %v, want ErrBadReference", err)
		}
	})
	t.Run("object mesh", func(t *testing.T) {
		s := NewSession(Options{})
		_, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
			{Parent: scene.RootParent, Assignments: []scene.Assignment{{Mesh: 2, Material: scene.NoMaterial}}},
		}})
		if !errors.Is(err, ErrBadReference) {
			t.Errorf("err = %v, want ErrBadReference", err)
		}
	})
	t.Run("material texture", func(t *testing.T) {
		s := NewSession(Options{})
		_, err := s.AddMaterial(&scene.MaterialData{BaseColorTexture: &scene.TextureRef{Texture: 0}})
		if !errors.Is(err, ErrBadReference) {
			t.Errorf("err = %v, want ErrBadReference", err)
		}
	})
}

func TestSession_AbortClosesSession(t *testing.T) {
	s := NewSession(Options{})
	s.Abort()
	if _, err := s.AddMesh(triangleMesh("tri")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}
	if err := s.FinalizeTo(&bytes.Buffer{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("FinalizeTo err = %v, want ErrSessionClosed", err)
	}
}

func TestSession_FinalizeToTextModeNeedsPath(t *testing.T) {
	s := NewSession(Options{})
	if _, err := s.AddMesh(triangleMesh("tri")); err != nil {
		t.Fatal(err)
	}
	err := s.FinalizeTo(&bytes.Buffer{})
	var rerr *ResourceError
	if !errors.As(err, &rerr) {
		t.Errorf("err = %v, want ResourceError", err)
	}
}

func TestSession_WebPImageRequiresExtension(t *testing.T) {
	s := NewSession(Options{Binary: true})
	img, err := s.AddImage(&scene.ImageData{
		Name: "photo", Blob: []byte("RIFFxxxxWEBP"), Format: scene.FormatWebP,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTexture(&scene.TextureData{Image: img}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())

	count := func(names []string) int {
		n := 0
		for _, name := range names {
			if name == ExtTextureWebP {
				n++
			}
		}
		return n
	}
	if count(doc.ExtensionsRequired) != 1 {
		t.Errorf("extensionsRequired = %v", doc.ExtensionsRequired)
	}
	if count(doc.ExtensionsUsed) != 1 {
		t.Errorf("extensionsUsed = %v", doc.ExtensionsUsed)
	}
	// The source reference moved into the extension object.
	if doc.Textures[0].Source != nil {
		t.Errorf("texture core source = %v, want absent", doc.Textures[0].Source)
	}
}

func TestSession_FinalizeTextModeSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gltf")

	s := NewSession(Options{Generator: "exporter-test"})
	img, err := s.AddImage(&scene.ImageData{
		Name: "tile", Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 255},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTexture(&scene.TextureData{Image: img}); err != nil {
		t.Fatal(err)
	}
	mesh, err := s.AddMesh(triangleMesh("tri"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Parent: scene.RootParent, Assignments: []scene.Assignment{{Mesh: mesh, Material: scene.NoMaterial}}},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(path); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	for _, name := range []string{"model.gltf", "model.bin", "tile.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected sibling file %s: %v", name, err)
		}
	}

	doc, err := qgltf.Open(path)
	if err != nil {
		t.Fatalf("reading document back: %v", err)
	}
	if len(doc.Buffers) != 1 || doc.Buffers[0].URI != "model.bin" {
		t.Errorf("buffers = %v, want sibling payload reference", doc.Buffers)
	}
	if len(doc.Images) != 1 || doc.Images[0].URI != "tile.png" {
		t.Errorf("images = %v, want external file reference", doc.Images)
	}
}

func TestSession_FlipCoordinates(t *testing.T) {
	tr := mgl32.Vec3{1, 2, 3}
	s := NewSession(Options{Binary: true, FlipCoordinates: true})
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Parent: scene.RootParent, Transform: &scene.Transform{Translation: &tr}},
	}}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())
	if doc.Nodes[0].Translation != [3]float64{1, 2, -3} {
		t.Errorf("translation = %v, want z negated", doc.Nodes[0].Translation)
	}
}

func TestSession_ShortVertexBufferPadded(t *testing.T) {
	// Interleaved position+normal at stride 24, but the source runs 12
	// bytes short of three full strides: the view must be padded out, not
	// truncated.
	data := floatBytes(
		0, 0, 0, 0, 0, 1,
		1, 0, 0, 0, 0, 1,
		0, 1, 0,
	)
	s := NewSession(Options{Binary: true})
	mesh, err := s.AddMesh(&scene.MeshData{
		Name:        "short",
		VertexCount: 3,
		Data:        data,
		Attributes: []scene.AttributeDesc{
			{Semantic: scene.Position, Component: scene.Float32, Count: 3, Offset: 0, Stride: 24},
			{Semantic: scene.Normal, Component: scene.Float32, Count: 3, Offset: 12, Stride: 24},
		},
		Topology: scene.Triangles,
	})
	if err != nil {
		t.Fatalf("AddMesh: %v", err)
	}
	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{Parent: scene.RootParent, Assignments: []scene.Assignment{{Mesh: mesh, Material: scene.NoMaterial}}},
	}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatalf("FinalizeTo: %v", err)
	}
	doc := decodeBinary(t, buf.Bytes())

	if len(doc.BufferViews) != 1 {
		t.Fatalf("bufferViews = %d, want the attributes to share one view", len(doc.BufferViews))
	}
	bv := doc.BufferViews[0]
	if int(bv.ByteStride) != 24 {
		t.Errorf("byteStride = %d, want 24", bv.ByteStride)
	}
	if int(bv.ByteLength) != 72 {
		t.Errorf("byteLength = %d, want three full strides", bv.ByteLength)
	}
	if int(doc.Buffers[0].ByteLength) < 72 {
		t.Errorf("buffer byteLength = %d, want the padded view to fit", doc.Buffers[0].ByteLength)
	}

	prim := doc.Meshes[0].Primitives[0]
	pos := doc.Accessors[int(prim.Attributes["POSITION"])]
	if int(pos.Count) != 3 || len(pos.Max) != 3 || pos.Max[0] != 1 || pos.Max[1] != 1 {
		t.Errorf("position accessor = %+v", pos)
	}
	nrm := doc.Accessors[int(prim.Attributes["NORMAL"])]
	if int(nrm.ByteOffset) != 12 {
		t.Errorf("normal byteOffset = %d, want 12", nrm.ByteOffset)
	}
}

func TestSession_NodeWithoutTransform(t *testing.T) {
	// An object with no transform emits a bare node, with or without
	// keep-defaults.
	for _, keep := range []bool{false, true} {
		s := NewSession(Options{Binary: true, KeepDefaults: keep})
		if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
			{Parent: scene.RootParent},
		}}); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := s.FinalizeTo(&buf); err != nil {
			t.Fatalf("FinalizeTo(keep=%v): %v", keep, err)
		}
		raw, _, err := ReadGLB(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(raw, []byte(`"nodes":[{}]`)) {
			t.Errorf("keep=%v: node fragment = %s, want an empty node", keep, raw)
		}
	}
}

func TestSession_SamplerIgnoresKeepDefaults(t *testing.T) {
	build := func(keep bool) []byte {
		s := NewSession(Options{Binary: true, KeepDefaults: keep})
		img, err := s.AddImage(&scene.ImageData{
			Name: "tile", Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 255},
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddTexture(&scene.TextureData{Image: img}); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := s.FinalizeTo(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	plain, kept := build(false), build(true)
	// The option has no sampler-shaped defaults to materialize: wrap modes
	// are always written and unset filters stay absent.
	if !bytes.Equal(plain, kept) {
		t.Error("keep-defaults changed a document containing only an image and a texture")
	}
	doc := decodeBinary(t, plain)
	if len(doc.Samplers) != 1 {
		t.Fatalf("samplers = %d, want 1", len(doc.Samplers))
	}
	sampler := doc.Samplers[0]
	if sampler.WrapS != qgltf.WrapRepeat || sampler.WrapT != qgltf.WrapRepeat {
		t.Errorf("wrap modes = %v/%v, want repeat", sampler.WrapS, sampler.WrapT)
	}
}

func TestSession_CustomAttributesAndExtras(t *testing.T) {
	names := NameMap{7: "GLOW", 9: "owner"}
	core, logs := observer.New(zap.WarnLevel)
	s := NewSession(Options{Binary: true, Logger: zap.New(core), Resolver: names})

	m := triangleMesh("tri")
	m.Data = append(m.Data, floatBytes(0.5, 0.5, 0.5)...)
	m.Attributes = append(m.Attributes,
		scene.AttributeDesc{Semantic: scene.Custom, Key: 7, Component: scene.Float32, Count: 1, Offset: 36},
		scene.AttributeDesc{Semantic: scene.Custom, Key: 8, Component: scene.Float32, Count: 1, Offset: 36},
	)
	mesh, err := s.AddMesh(m)
	if err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("vertex attribute has no output mapping").Len() != 1 {
		t.Error("unmapped custom attribute did not warn")
	}

	if _, err := s.AddScene(&scene.Scene{Objects: []scene.Object{
		{
			Parent:      scene.RootParent,
			Assignments: []scene.Assignment{{Mesh: mesh, Material: scene.NoMaterial}},
			Extras:      map[uint32]any{9: "alice", 11: 42},
		},
	}}); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("custom field has no output mapping").Len() != 1 {
		t.Error("unmapped custom field did not warn")
	}

	var buf bytes.Buffer
	if err := s.FinalizeTo(&buf); err != nil {
		t.Fatal(err)
	}
	doc := decodeBinary(t, buf.Bytes())
	prim := doc.Meshes[0].Primitives[0]
	if _, ok := prim.Attributes["_GLOW"]; !ok {
		t.Errorf("attributes = %v, want resolved custom name _GLOW", prim.Attributes)
	}
	if len(prim.Attributes) != 2 {
		t.Errorf("attributes = %v, want POSITION and _GLOW only", prim.Attributes)
	}
}

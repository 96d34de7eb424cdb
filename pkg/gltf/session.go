package gltf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// NameResolver maps numeric custom field and attribute keys to stable
// string names. It must be installed before the first add call that needs
// it; unresolved keys produce a warning and the field is skipped.
type NameResolver interface {
	ResolveName(key uint32) (string, bool)
}

// NameMap is a map-backed NameResolver.
type NameMap map[uint32]string

// ResolveName implements NameResolver.
func (m NameMap) ResolveName(key uint32) (string, bool) {
	name, ok := m[key]
	return name, ok
}

// Options configure a conversion session. The zero value produces a
// strict, text-mode session with embedded images and a nop logger.
type Options struct {
	Binary          bool   // emit a single binary container instead of text + sibling payload
	Permissive      bool   // downgrade certain format-validity errors to warnings
	KeepDefaults    bool   // emit values matching schema defaults instead of omitting them
	FlipCoordinates bool   // flip the Z axis of node transforms
	EmbedImages     bool   // force images into the payload even in text mode
	SuppressUnused  bool   // silence unused-data diagnostics
	Generator       string // asset.generator string
	Copyright       string // asset.copyright string

	Logger   *zap.Logger  // nil means no logging
	Encoder  ImageEncoder // nil means the built-in PNG/JPEG encoder
	Resolver NameResolver // names for custom fields and attributes
}

// meshEntry is the primitive prototype of one input mesh, referenced by
// mesh groups during scene addition.
type meshEntry struct {
	name        string
	attributes  map[string]int
	indices     *int
	mode        int
	vertexCount int
}

// imageEntry records what a texture needs to know about an added image.
type imageEntry struct {
	requiredExt string // extension a referencing texture must require
}

// externalFile is a sibling file queued for the finalize-time write.
type externalFile struct {
	name string
	data []byte
}

// Session is one scene-graph-to-document conversion in progress. Entities
// are added in strict dependency order — images, textures, materials,
// meshes, scenes — and each add call fully validates and applies before
// returning. Finalize consumes the session; Abort discards it. A session
// must not be used after either, nor after any fatal error.
type Session struct {
	opts Options
	log  *zap.Logger
	doc  *Document

	meshes    []meshEntry
	dedup     meshDedup
	images    []imageEntry
	externals []externalFile

	textureCount  int
	materialCount int
	sceneIndex    *int

	closed bool
}

// NewSession opens a conversion session with the given options.
func NewSession(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	enc := opts.Encoder
	if enc == nil {
		enc = StdImageEncoder{}
	}
	opts.Encoder = enc
	return &Session{
		opts: opts,
		log:  log,
		doc:  newDocument(opts.Generator, opts.Copyright),
	}
}

// fail records a fatal error: the document in progress is discarded and
// the session refuses further calls.
func (s *Session) fail(err error) error {
	s.closed = true
	s.doc = nil
	return err
}

func (s *Session) checkOpen() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// warnUnused reports an UnusedDataWarning-class diagnostic.
func (s *Session) warnUnused(msg string, fields ...zap.Field) {
	if !s.opts.SuppressUnused {
		s.log.Warn(msg, fields...)
	}
}

// AddImage encodes and adds one image, returning its index. Depending on
// the bundling preference the image lands in the binary payload or is
// queued as a sibling file written at finalize.
func (s *Session) AddImage(img *scene.ImageData) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	embed := img.Embed || s.opts.EmbedImages || s.opts.Binary
	enc, err := s.opts.Encoder.Encode(img, embed)
	if err != nil {
		return 0, s.fail(err)
	}

	entry := imageEntry{requiredExt: extensionForMIME(enc.MIME)}
	var out Image
	if embed {
		r := s.doc.grow(enc.Data, 0)
		view, err := s.doc.appendTo(secBufferViews, BufferView{
			Buffer:     0,
			ByteOffset: r.Offset,
			ByteLength: len(enc.Data),
		})
		if err != nil {
			return 0, s.fail(err)
		}
		out = Image{Name: img.Name, BufferView: &view, MimeType: enc.MIME}
	} else {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", len(s.images))
		}
		file := externalFile{name: name + enc.Extension, data: enc.Data}
		s.externals = append(s.externals, file)
		out = Image{Name: img.Name, URI: file.name}
	}

	idx, err := s.doc.appendTo(secImages, out)
	if err != nil {
		return 0, s.fail(err)
	}
	s.images = append(s.images, entry)
	return idx, nil
}

// extensionForMIME returns the extension a texture must require to
// reference an image of this MIME type, or "" for core encodings.
func extensionForMIME(mime string) string {
	switch mime {
	case "image/webp":
		return ExtTextureWebP
	case "image/ktx2":
		return ExtTextureBasisu
	default:
		return ""
	}
}

// AddTexture adds one texture, deduplicating its sampler parameters
// against previously emitted samplers. Referencing an image with a
// non-core encoding moves the source into the matching extension and
// marks that extension as required.
func (s *Session) AddTexture(tex *scene.TextureData) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if tex.Image < 0 || tex.Image >= len(s.images) {
		return 0, s.fail(badReference("texture image", tex.Image, len(s.images)))
	}

	sampler := Sampler{
		WrapS:     wrapFor(tex.WrapS),
		WrapT:     wrapFor(tex.WrapT),
		MinFilter: minFilterFor(tex.MinFilter, tex.MipFilter),
		MagFilter: magFilterFor(tex.MagFilter),
	}
	samplerIdx, err := s.doc.samplerIndex(sampler)
	if err != nil {
		return 0, s.fail(err)
	}

	source := tex.Image
	out := Texture{Sampler: &samplerIdx}
	if ext := s.images[tex.Image].requiredExt; ext != "" {
		s.doc.requireExtension(ext)
		out.Extensions = map[string]any{ext: map[string]any{"source": source}}
	} else {
		out.Source = &source
	}

	idx, err := s.doc.appendTo(secTextures, out)
	if err != nil {
		return 0, s.fail(err)
	}
	s.textureCount++
	return idx, nil
}

// textureInfo validates a material texture slot and lowers it to JSON.
func (s *Session) textureInfo(ref *scene.TextureRef) (*TextureInfo, error) {
	if ref.Texture < 0 || ref.Texture >= s.textureCount {
		return nil, badReference("material texture", ref.Texture, s.textureCount)
	}
	info := &TextureInfo{Index: ref.Texture, TexCoord: ref.TexCoord}
	if ref.Offset != nil || ref.ScaleUV != nil || ref.Rotation != 0 {
		transform := map[string]any{}
		if ref.Offset != nil {
			transform["offset"] = *ref.Offset
		}
		if ref.ScaleUV != nil {
			transform["scale"] = *ref.ScaleUV
		}
		if ref.Rotation != 0 {
			transform["rotation"] = ref.Rotation
		}
		info.Extensions = map[string]any{ExtTextureTransform: transform}
	}
	return info, nil
}

// AddMaterial adds one PBR material, returning its index.
func (s *Session) AddMaterial(mat *scene.MaterialData) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	// Validation first: the material is accepted or rejected atomically.
	var baseTex *TextureInfo
	if mat.BaseColorTexture != nil {
		info, err := s.textureInfo(mat.BaseColorTexture)
		if err != nil {
			return 0, s.fail(err)
		}
		baseTex = info
	}

	keep := s.opts.KeepDefaults
	pbr := &PBRMetallicRoughness{BaseColorTexture: baseTex}
	if keep || mat.BaseColor != [4]float32{1, 1, 1, 1} {
		c := mat.BaseColor
		pbr.BaseColorFactor = &c
	}
	if keep || mat.Metallic != 1 {
		m := mat.Metallic
		pbr.MetallicFactor = &m
	}
	if keep || mat.Roughness != 1 {
		r := mat.Roughness
		pbr.RoughnessFactor = &r
	}

	out := Material{Name: mat.Name, PBR: pbr, DoubleSided: mat.DoubleSided}
	if keep || mat.Emissive != [3]float32{} {
		e := mat.Emissive
		out.EmissiveFactor = &e
	}
	switch mat.AlphaMode {
	case scene.AlphaMask:
		out.AlphaMode = "MASK"
		if keep || mat.AlphaCutoff != 0.5 {
			c := mat.AlphaCutoff
			out.AlphaCutoff = &c
		}
	case scene.AlphaBlend:
		out.AlphaMode = "BLEND"
	default:
		if keep {
			out.AlphaMode = "OPAQUE"
		}
	}
	if mat.Unlit {
		s.doc.useExtension(ExtMaterialsUnlit)
		out.Extensions = map[string]any{ExtMaterialsUnlit: map[string]any{}}
	}
	if mat.EmissiveStrength > 1 {
		s.doc.useExtension(ExtEmissiveStrength)
		if out.Extensions == nil {
			out.Extensions = map[string]any{}
		}
		out.Extensions[ExtEmissiveStrength] = map[string]any{"emissiveStrength": mat.EmissiveStrength}
	}
	if baseTex != nil && baseTex.Extensions != nil {
		s.doc.useExtension(ExtTextureTransform)
	}

	idx, err := s.doc.appendTo(secMaterials, out)
	if err != nil {
		return 0, s.fail(err)
	}
	s.materialCount++
	return idx, nil
}

// keptAttr is an attribute that survived name resolution, with its
// resolved output names (one per arity slot) and component mapping.
type keptAttr struct {
	desc  scene.AttributeDesc
	names []string
	comp  ComponentType
	shape AccessorType
}

// AddMesh packs one mesh's vertex attributes into buffer views, emits the
// accessors, and registers the primitive prototype later scenes refer to.
// It returns the mesh index.
func (s *Session) AddMesh(m *scene.MeshData) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	// All fallible validation happens before any fragment is written.
	if m.VertexCount == 0 {
		if !s.opts.Permissive {
			return 0, s.fail(unsupportedf("mesh %q has no vertices", m.Name))
		}
		s.log.Warn("emitting zero-vertex mesh", zap.String("mesh", m.Name))
	}

	var resolve func(uint32) (string, bool)
	if s.opts.Resolver != nil {
		resolve = s.opts.Resolver.ResolveName
	}
	var kept []keptAttr
	for i := range m.Attributes {
		a := m.Attributes[i]
		comp, narrowed, ok := componentTypeFor(a.Component)
		if !ok {
			return 0, s.fail(unsupportedf("mesh %q attribute %d: %s components are not expressible", m.Name, i, a.Component))
		}
		if narrowed {
			if !s.opts.Permissive {
				return 0, s.fail(unsupportedf("mesh %q attribute %d: %s is wider than the schema's integer types", m.Name, i, a.Component))
			}
			s.log.Warn("relabeling wide integer attribute",
				zap.String("mesh", m.Name), zap.Int("attribute", i), zap.Stringer("from", a.Component))
		}
		shape, ok := accessorTypeFor(a.Count)
		if !ok {
			return 0, s.fail(unsupportedf("mesh %q attribute %d: %d components have no accessor shape", m.Name, i, a.Count))
		}
		arity := a.Arity
		if arity < 1 {
			arity = 1
		}
		names := make([]string, arity)
		dropped := false
		for slot := 0; slot < arity; slot++ {
			name, ok := attributeName(&a, slot, resolve)
			if !ok {
				s.warnUnused("vertex attribute has no output mapping",
					zap.String("mesh", m.Name), zap.Uint32("key", a.Key))
				dropped = true
				break
			}
			names[slot] = name
		}
		if dropped {
			continue
		}
		kept = append(kept, keptAttr{desc: a, names: names, comp: comp, shape: shape})
	}

	var indexComp ComponentType
	if m.Indices != nil {
		comp, narrowed, ok := componentTypeFor(m.Indices.Component)
		if !ok || (narrowed && !s.opts.Permissive) {
			return 0, s.fail(unsupportedf("mesh %q: %s indices are not expressible", m.Name, m.Indices.Component))
		}
		if narrowed {
			s.log.Warn("relabeling wide integer indices", zap.String("mesh", m.Name))
		}
		indexComp = comp
	}

	descs := make([]scene.AttributeDesc, len(kept))
	for i := range kept {
		descs[i] = kept[i].desc
	}
	layout := packAttributes(descs, m.VertexCount, len(m.Data))

	// Validation is complete; from here on the mesh is committed.
	viewIndices := make([]int, len(layout.Views))
	viewSlots := make([]int, len(layout.Views))
	for i := range kept {
		n := len(kept[i].names)
		viewSlots[layout.Attrs[i].View] += n
	}
	for vi, v := range layout.Views {
		if v.Pad > 0 {
			s.log.Debug("padding short vertex buffer view",
				zap.String("mesh", m.Name), zap.Int("view", vi), zap.Int("padBytes", v.Pad))
		}
		want := m.VertexCount*v.Stride - v.Pad
		r := s.doc.grow(m.Data[v.MinOffset:v.MinOffset+want], v.Pad)
		bv := BufferView{
			Buffer:     0,
			ByteOffset: r.Offset,
			ByteLength: m.VertexCount * v.Stride,
			Target:     TargetArrayBuffer,
		}
		// The stride is implicit for a view holding a single tightly
		// packed accessor.
		if viewSlots[vi] > 1 || soleElementSize(layout, descs, vi) != v.Stride {
			bv.ByteStride = v.Stride
		}
		idx, err := s.doc.appendTo(secBufferViews, bv)
		if err != nil {
			return 0, s.fail(err)
		}
		viewIndices[vi] = idx
	}

	attributes := make(map[string]int, len(kept))
	for i := range kept {
		a := &kept[i]
		slotSize := a.desc.Component.Size() * a.desc.Count
		for slot, name := range a.names {
			acc := Accessor{
				ComponentType: a.comp,
				Count:         m.VertexCount,
				Type:          a.shape,
				Normalized:    a.desc.Normalized,
			}
			view := viewIndices[layout.Attrs[i].View]
			acc.BufferView = &view
			acc.ByteOffset = layout.Attrs[i].Offset + slot*slotSize
			if a.desc.Semantic == scene.Position && a.comp == CompFloat && a.shape == Vec3 {
				srcOff := a.desc.Offset + slot*slotSize
				stride := a.desc.Stride
				if stride == 0 {
					stride = a.desc.ElementSize()
				}
				acc.Min, acc.Max = positionBounds(m.Data, srcOff, stride, m.VertexCount)
			}
			idx, err := s.doc.appendTo(secAccessors, acc)
			if err != nil {
				return 0, s.fail(err)
			}
			attributes[name] = idx
		}
	}

	entry := meshEntry{
		name:        m.Name,
		attributes:  attributes,
		mode:        modeFor(m.Topology),
		vertexCount: m.VertexCount,
	}
	if m.Indices != nil {
		r := s.doc.grow(m.Indices.Data, 0)
		view, err := s.doc.appendTo(secBufferViews, BufferView{
			Buffer:     0,
			ByteOffset: r.Offset,
			ByteLength: len(m.Indices.Data),
			Target:     TargetElementArrayBuffer,
		})
		if err != nil {
			return 0, s.fail(err)
		}
		acc, err := s.doc.appendTo(secAccessors, Accessor{
			BufferView:    &view,
			ComponentType: indexComp,
			Count:         m.Indices.Count,
			Type:          Scalar,
		})
		if err != nil {
			return 0, s.fail(err)
		}
		entry.indices = &acc
	}

	s.meshes = append(s.meshes, entry)
	return len(s.meshes) - 1, nil
}

// soleElementSize returns the element size of the single attribute slot in
// view vi, or -1 when the view holds more than one.
func soleElementSize(layout PackedLayout, descs []scene.AttributeDesc, vi int) int {
	size, n := -1, 0
	for i := range layout.Attrs {
		if layout.Attrs[i].View == vi {
			n++
			size = descs[i].ElementSize()
		}
	}
	if n != 1 {
		return -1
	}
	return size
}

// positionBounds computes per-component min/max over float32 vec3 data.
func positionBounds(data []byte, offset, stride, count int) (min, max []float32) {
	if count == 0 || offset+12 > len(data) {
		return nil, nil
	}
	min = []float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max = []float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := 0; i < count; i++ {
		base := offset + i*stride
		if base+12 > len(data) {
			break
		}
		for c := 0; c < 3; c++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[base+4*c:]))
			if v < min[c] {
				min[c] = v
			}
			if v > max[c] {
				max[c] = v
			}
		}
	}
	return min, max
}

// AddScene flattens one object hierarchy into nodes and a scene entry.
// Objects sharing a canonical assignment sequence share one output mesh
// group. The first added scene becomes the document's default scene.
func (s *Session) AddScene(sc *scene.Scene) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	// Validate every reference and the hierarchy before writing anything.
	for i := range sc.Objects {
		for _, a := range sc.Objects[i].Assignments {
			if a.Mesh < 0 || a.Mesh >= len(s.meshes) {
				return 0, s.fail(badReference(fmt.Sprintf("object %d mesh", i), a.Mesh, len(s.meshes)))
			}
			if a.Material != scene.NoMaterial && (a.Material < 0 || a.Material >= s.materialCount) {
				return 0, s.fail(badReference(fmt.Sprintf("object %d material", i), a.Material, s.materialCount))
			}
		}
	}
	fl := NewFlattener(len(sc.Objects))
	for i := range sc.Objects {
		switch p := sc.Objects[i].Parent; p {
		case scene.Detached:
		case scene.RootParent:
			fl.MarkRoot(i)
		default:
			fl.SetParent(i, p)
		}
	}
	if err := fl.Validate(); err != nil {
		return 0, s.fail(err)
	}
	h, err := fl.BuildChildLists()
	if err != nil {
		return 0, s.fail(err)
	}

	base := s.doc.count(secNodes)
	nodeIndex := make([]int, len(sc.Objects))
	next := base
	for i := range sc.Objects {
		if h.InTree[i] {
			nodeIndex[i] = next
			next++
			continue
		}
		nodeIndex[i] = -1
		o := &sc.Objects[i]
		if len(o.Assignments) > 0 || o.Transform != nil || len(o.Extras) > 0 {
			s.warnUnused("object without a parent marker is excluded from the hierarchy",
				zap.Int("object", i), zap.String("name", o.Name))
		}
	}

	for i := range sc.Objects {
		if !h.InTree[i] {
			continue
		}
		node, err := s.buildNode(&sc.Objects[i], h.Children[i], nodeIndex)
		if err != nil {
			return 0, s.fail(err)
		}
		if _, err := s.doc.appendTo(secNodes, node); err != nil {
			return 0, s.fail(err)
		}
	}

	entry := SceneEntry{Name: sc.Name}
	for _, r := range h.Roots {
		entry.Nodes = append(entry.Nodes, nodeIndex[r])
	}
	idx, err := s.doc.appendTo(secScenes, entry)
	if err != nil {
		return 0, s.fail(err)
	}
	if s.sceneIndex == nil {
		first := idx
		s.sceneIndex = &first
	}
	return idx, nil
}

// buildNode lowers one in-tree object to a node, allocating its mesh
// group if the canonical assignment sequence is new.
func (s *Session) buildNode(o *scene.Object, children []int, nodeIndex []int) (Node, error) {
	node := Node{Name: o.Name}
	for _, c := range children {
		node.Children = append(node.Children, nodeIndex[c])
	}
	s.applyTransform(&node, o.Transform)

	if len(o.Assignments) > 0 {
		group, err := s.meshGroup(o.Assignments)
		if err != nil {
			return Node{}, err
		}
		node.Mesh = &group
	}

	if len(o.Extras) > 0 && s.opts.Resolver != nil {
		extras := make(map[string]any, len(o.Extras))
		for key, val := range o.Extras {
			name, ok := s.opts.Resolver.ResolveName(key)
			if !ok {
				s.warnUnused("custom field has no output mapping", zap.Uint32("key", key))
				continue
			}
			extras[name] = val
		}
		if len(extras) > 0 {
			node.Extras = extras
		}
	} else if len(o.Extras) > 0 {
		s.warnUnused("custom fields dropped: no name resolver installed", zap.Int("fields", len(o.Extras)))
	}
	return node, nil
}

// meshGroup returns the output mesh index for an assignment list,
// emitting a new mesh entry the first time this canonical sequence is
// seen. The output mesh array stays in lockstep with the registry.
func (s *Session) meshGroup(assignments []scene.Assignment) (int, error) {
	canonical := canonicalAssignments(assignments)
	id, existed := s.dedup.lookup(canonical)
	if existed {
		return id, nil
	}
	out := Mesh{}
	if len(canonical) == 1 {
		out.Name = s.meshes[canonical[0].Mesh].name
	}
	for _, a := range canonical {
		out.Primitives = append(out.Primitives, s.primitive(a.Mesh, a.Material))
	}
	idx, err := s.doc.appendTo(secMeshes, out)
	if err != nil {
		return 0, err
	}
	if idx != id {
		return 0, fmt.Errorf("gltf: mesh registry out of step with document (%d != %d)", id, idx)
	}
	return id, nil
}

// primitive instantiates a mesh prototype with a material binding.
func (s *Session) primitive(mesh, material int) Primitive {
	entry := &s.meshes[mesh]
	p := Primitive{Attributes: entry.attributes, Indices: entry.indices}
	if entry.mode != ModeTriangles || s.opts.KeepDefaults {
		mode := entry.mode
		p.Mode = &mode
	}
	if material != scene.NoMaterial {
		m := material
		p.Material = &m
	}
	return p
}

// applyTransform writes an object transform onto a node, flipping the Z
// axis when the session is configured for coordinate conversion.
func (s *Session) applyTransform(node *Node, t *scene.Transform) {
	if t == nil {
		return
	}
	if t.IsIdentity() && !s.opts.KeepDefaults {
		return
	}
	if t.Matrix != nil {
		m := *t.Matrix
		if s.opts.FlipCoordinates {
			m = flipMat4(m)
		}
		out := [16]float32(m)
		node.Matrix = &out
		return
	}
	if t.Translation != nil {
		v := *t.Translation
		if s.opts.FlipCoordinates {
			v[2] = -v[2]
		}
		out := [3]float32(v)
		node.Translation = &out
	}
	if t.Rotation != nil {
		q := *t.Rotation
		if s.opts.FlipCoordinates {
			q.V[0] = -q.V[0]
			q.V[1] = -q.V[1]
		}
		out := [4]float32{q.V[0], q.V[1], q.V[2], q.W}
		node.Rotation = &out
	}
	if t.Scale != nil {
		out := [3]float32(*t.Scale)
		node.Scale = &out
	}
}

// flipMat4 conjugates a transform by the Z reflection, converting between
// right- and left-handed coordinate systems.
func flipMat4(m mgl32.Mat4) mgl32.Mat4 {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			if (row == 2) != (col == 2) {
				m[col*4+row] = -m[col*4+row]
			}
		}
	}
	return m
}

// appendUnreferencedMeshes emits every input mesh no retained object ever
// referenced: one output mesh each, without a material, in declaration
// order, after all deduplicated groups.
func (s *Session) appendUnreferencedMeshes() error {
	refd := s.dedup.referenced(len(s.meshes))
	for i := range s.meshes {
		if refd[i] {
			continue
		}
		out := Mesh{
			Name:       s.meshes[i].name,
			Primitives: []Primitive{s.primitive(i, scene.NoMaterial)},
		}
		if _, err := s.doc.appendTo(secMeshes, out); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeTo assembles the document and writes it to w: the binary
// container in binary mode, the plain document bytes otherwise. Text-mode
// output with a non-empty payload or pending sibling images has no
// destination path to derive filenames from and fails with a
// ResourceError. The session is consumed on success.
func (s *Session) FinalizeTo(w io.Writer) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.appendUnreferencedMeshes(); err != nil {
		return s.fail(err)
	}
	if !s.opts.Binary && len(s.doc.arena) > 0 {
		return s.fail(resourcef("external payload required but no destination path is known"))
	}
	if len(s.externals) > 0 {
		return s.fail(resourcef("external image files required but no destination path is known"))
	}

	doc, err := s.doc.assemble("", s.sceneIndex)
	if err != nil {
		return s.fail(err)
	}
	if s.opts.Binary {
		if _, err := WriteGLB(w, doc, s.doc.arena); err != nil {
			return s.fail(err)
		}
	} else if _, err := w.Write(doc); err != nil {
		return s.fail(err)
	}
	s.closed = true
	s.doc = nil
	return nil
}

// Finalize assembles the document and writes it to path, plus a sibling
// .bin payload file in text mode and any queued external image files.
// Sibling writes are best-effort: a failure partway leaves earlier files
// in place; callers needing atomic publication must stage to temporary
// paths themselves. The session is consumed on success.
func (s *Session) Finalize(path string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.appendUnreferencedMeshes(); err != nil {
		return s.fail(err)
	}

	dir := filepath.Dir(path)
	for _, f := range s.externals {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, 0644); err != nil {
			return s.fail(fmt.Errorf("writing external image: %w", err))
		}
	}

	if s.opts.Binary {
		doc, err := s.doc.assemble("", s.sceneIndex)
		if err != nil {
			return s.fail(err)
		}
		f, err := os.Create(path)
		if err != nil {
			return s.fail(err)
		}
		defer f.Close()
		if _, err := WriteGLB(f, doc, s.doc.arena); err != nil {
			return s.fail(err)
		}
	} else {
		uri := ""
		if len(s.doc.arena) > 0 {
			uri = SiblingPayloadName(path)
		}
		doc, err := s.doc.assemble(uri, s.sceneIndex)
		if err != nil {
			return s.fail(err)
		}
		if err := os.WriteFile(path, doc, 0644); err != nil {
			return s.fail(err)
		}
		if uri != "" {
			if err := os.WriteFile(filepath.Join(dir, uri), s.doc.arena, 0644); err != nil {
				return s.fail(fmt.Errorf("writing sibling payload: %w", err))
			}
		}
	}
	s.closed = true
	s.doc = nil
	return nil
}

// Abort discards the conversion in progress. The session is unusable
// afterwards.
func (s *Session) Abort() {
	s.closed = true
	s.doc = nil
}

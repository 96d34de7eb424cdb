package gltf

import (
	"bytes"
	"fmt"
)

// sectionState tracks the lifecycle of one top-level document section.
type sectionState uint8

const (
	sectionNotStarted sectionState = iota
	sectionOpen
	sectionClosed
)

// sectionID indexes the fixed set of document sections, in output order.
type sectionID int

const (
	secBuffers sectionID = iota
	secBufferViews
	secAccessors
	secMeshes
	secMaterials
	secSamplers
	secTextures
	secImages
	secNodes
	secScenes
	sectionCount
)

var sectionNames = [sectionCount]string{
	"buffers",
	"bufferViews",
	"accessors",
	"meshes",
	"materials",
	"samplers",
	"textures",
	"images",
	"nodes",
	"scenes",
}

// section accumulates the comma-joined JSON fragments of one document
// section. Elements are write-once and appended in document order.
type section struct {
	state sectionState
	count int
	buf   bytes.Buffer
}

// append marshals v into the section and returns its element index.
func (s *section) append(v any) (int, error) {
	raw, err := marshalEntity(v)
	if err != nil {
		return 0, err
	}
	if s.state == sectionClosed {
		return 0, fmt.Errorf("gltf: append to closed section")
	}
	if s.count > 0 {
		s.buf.WriteByte(',')
	}
	s.buf.Write(raw)
	s.state = sectionOpen
	s.count++
	return s.count - 1, nil
}

// byteRange is the span a producer received back from the payload arena.
type byteRange struct {
	Offset int
	Length int
}

// Document accumulates the output document: one writer per section, the
// shared payload arena, the extension usage sets and the sampler
// deduplication table. It is owned by exactly one Session.
type Document struct {
	asset    Asset
	sections [sectionCount]section

	arena []byte // shared binary payload, grown by every producer

	extUsed     []string
	extRequired []string
	extState    map[string]bool // name -> required (present means declared)

	samplerKeys map[uint64]int
}

func newDocument(generator, copyright string) *Document {
	return &Document{
		asset: Asset{
			Version:   Version,
			Generator: generator,
			Copyright: copyright,
		},
		extState:    make(map[string]bool),
		samplerKeys: make(map[uint64]int),
	}
}

// appendTo writes one entity fragment into a section. All validation for
// the owning logical entity must have completed before the first call.
func (d *Document) appendTo(sec sectionID, v any) (int, error) {
	return d.sections[sec].append(v)
}

// count returns the number of elements appended to a section so far.
func (d *Document) count(sec sectionID) int {
	return d.sections[sec].count
}

// grow appends data plus pad zero bytes to the payload arena, aligned to a
// 4-byte boundary, and returns the byte range handed back to the producer.
func (d *Document) grow(data []byte, pad int) byteRange {
	for len(d.arena)%4 != 0 {
		d.arena = append(d.arena, 0)
	}
	off := len(d.arena)
	d.arena = append(d.arena, data...)
	for i := 0; i < pad; i++ {
		d.arena = append(d.arena, 0)
	}
	return byteRange{Offset: off, Length: len(data) + pad}
}

// useExtension declares an extension as used. Extensions already in the
// required set stay there; the two sets remain disjoint until finalize.
func (d *Document) useExtension(name string) {
	if _, ok := d.extState[name]; ok {
		return
	}
	d.extState[name] = false
	d.extUsed = append(d.extUsed, name)
}

// requireExtension declares an extension as structurally required. A name
// previously only used is promoted and removed from the used list.
func (d *Document) requireExtension(name string) {
	if req, ok := d.extState[name]; ok {
		if req {
			return
		}
		for i, n := range d.extUsed {
			if n == name {
				d.extUsed = append(d.extUsed[:i], d.extUsed[i+1:]...)
				break
			}
		}
	}
	d.extState[name] = true
	d.extRequired = append(d.extRequired, name)
}

// samplerKey packs the four sampler parameters into one integer key.
func samplerKey(s Sampler) uint64 {
	return uint64(uint16(s.WrapS)) |
		uint64(uint16(s.WrapT))<<16 |
		uint64(uint16(s.MinFilter))<<32 |
		uint64(uint16(s.MagFilter))<<48
}

// samplerIndex returns the index of a sampler with these parameters,
// appending a new one only when no identical sampler was emitted before.
func (d *Document) samplerIndex(s Sampler) (int, error) {
	key := samplerKey(s)
	if idx, ok := d.samplerKeys[key]; ok {
		return idx, nil
	}
	idx, err := d.appendTo(secSamplers, s)
	if err != nil {
		return 0, err
	}
	d.samplerKeys[key] = idx
	return idx, nil
}

// assemble closes every section and produces the final document bytes.
// bufferURI names the external payload file; it is empty for embedded
// (binary container) output. Sections closed with zero elements are
// omitted, except that nodes and scenes are emitted together, possibly
// empty, once any scene was opened. sceneIndex, when non-nil, selects the
// default scene.
func (d *Document) assemble(bufferURI string, sceneIndex *int) ([]byte, error) {
	if len(d.arena) > 0 {
		if _, err := d.appendTo(secBuffers, Buffer{ByteLength: len(d.arena), URI: bufferURI}); err != nil {
			return nil, err
		}
	}

	// Output-only merge: used becomes a superset of required.
	used := make([]string, 0, len(d.extUsed)+len(d.extRequired))
	used = append(used, d.extUsed...)
	used = append(used, d.extRequired...)

	scenesOpened := d.sections[secScenes].state != sectionNotStarted

	var out bytes.Buffer
	out.WriteString(`{"asset":`)
	raw, err := marshalEntity(d.asset)
	if err != nil {
		return nil, err
	}
	out.Write(raw)

	writeList := func(name string, names []string) error {
		raw, err := marshalEntity(names)
		if err != nil {
			return err
		}
		out.WriteString(`,"` + name + `":`)
		out.Write(raw)
		return nil
	}
	if len(used) > 0 {
		if err := writeList("extensionsUsed", used); err != nil {
			return nil, err
		}
	}
	if len(d.extRequired) > 0 {
		if err := writeList("extensionsRequired", d.extRequired); err != nil {
			return nil, err
		}
	}

	for id := sectionID(0); id < sectionCount; id++ {
		s := &d.sections[id]
		s.state = sectionClosed
		include := s.count > 0
		if (id == secNodes || id == secScenes) && scenesOpened {
			include = true
		}
		if !include {
			continue
		}
		out.WriteString(`,"` + sectionNames[id] + `":[`)
		out.Write(s.buf.Bytes())
		out.WriteByte(']')
	}

	if sceneIndex != nil {
		fmt.Fprintf(&out, `,"scene":%d`, *sceneIndex)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

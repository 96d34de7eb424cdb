package gltf

import (
	"sort"

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// PackedView is one strided destination buffer view produced by the
// packer: a byte range of the source vertex data starting at MinOffset,
// Stride bytes per vertex, plus Pad zero bytes the copier must append when
// the source runs short of vertexCount full strides.
type PackedView struct {
	MinOffset int
	Stride    int
	Pad       int
}

// Extent returns the source byte extent the view covers for count vertices.
func (v PackedView) Extent(count int) int {
	return v.MinOffset + count*v.Stride
}

// PackedAttr locates one attribute inside the packed layout.
type PackedAttr struct {
	View   int // index into PackedLayout.Views
	Offset int // view-relative byte offset
}

// PackedLayout is the packer result: Attrs is parallel to the input
// descriptor slice.
type PackedLayout struct {
	Views []PackedView
	Attrs []PackedAttr
}

// packAttributes groups vertex attributes into byte-aligned strided views.
//
// Attributes are scanned in source-offset order. A new view starts whenever
// an attribute's stride differs from the active view's stride, or its
// element would not fit inside one stride of the active view; otherwise
// the attribute joins the active view at a view-relative offset.
//
// After grouping, each view's extent is corrected against the source byte
// length: an overshoot is first absorbed by shifting MinOffset down, and
// whatever remains after shifting to zero becomes a required zero-fill pad.
// The pass cannot fail; it always yields a consistent layout.
func packAttributes(attrs []scene.AttributeDesc, vertexCount, sourceLen int) PackedLayout {
	type indexed struct {
		desc *scene.AttributeDesc
		pos  int // position in the input slice
	}
	order := make([]indexed, len(attrs))
	for i := range attrs {
		order[i] = indexed{desc: &attrs[i], pos: i}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].desc.Offset < order[j].desc.Offset
	})

	layout := PackedLayout{Attrs: make([]PackedAttr, len(attrs))}
	active := -1
	for _, it := range order {
		elem := it.desc.ElementSize()
		stride := it.desc.Stride
		if stride == 0 {
			stride = elem
		}
		if active >= 0 {
			v := &layout.Views[active]
			if stride == v.Stride && it.desc.Offset+elem <= v.MinOffset+v.Stride {
				layout.Attrs[it.pos] = PackedAttr{View: active, Offset: it.desc.Offset - v.MinOffset}
				continue
			}
		}
		layout.Views = append(layout.Views, PackedView{MinOffset: it.desc.Offset, Stride: stride})
		active = len(layout.Views) - 1
		layout.Attrs[it.pos] = PackedAttr{View: active, Offset: 0}
	}

	for i := range layout.Views {
		v := &layout.Views[i]
		excess := v.Extent(vertexCount) - sourceLen
		if excess <= 0 {
			continue
		}
		shift := excess
		if shift > v.MinOffset {
			shift = v.MinOffset
		}
		if shift > 0 {
			v.MinOffset -= shift
			for a := range layout.Attrs {
				if layout.Attrs[a].View == i {
					layout.Attrs[a].Offset += shift
				}
			}
			excess -= shift
		}
		if excess > 0 {
			v.Pad = excess
		}
	}
	return layout
}

package gltf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg" // decoder for re-encoding JPEG sources

	_ "golang.org/x/image/bmp"  // decoder for BMP sources
	_ "golang.org/x/image/tiff" // decoder for TIFF sources

	"github.com/Faultbox/gltfexport/pkg/scene"
)

// EncodedImage is the result of the image-encoding collaborator: an
// in-memory blob plus its MIME type when embedding, or a blob plus the
// file extension to use when the core writes a sibling file.
type EncodedImage struct {
	Data      []byte
	MIME      string
	Extension string // includes the leading dot; set for external output
}

// ImageEncoder turns source pixel data into an output encoding. embed
// asks for a payload-embeddable blob; otherwise the encoder prepares data
// for an external sibling file and names its extension.
type ImageEncoder interface {
	Encode(img *scene.ImageData, embed bool) (*EncodedImage, error)
}

// StdImageEncoder is the built-in encoder: raw RGBA pixels become PNG,
// PNG/JPEG blobs pass through unchanged, WebP and KTX2 blobs pass through
// tagged with their non-core MIME types, and BMP/TIFF blobs are decoded
// and re-encoded as PNG.
type StdImageEncoder struct{}

// Encode implements ImageEncoder.
func (StdImageEncoder) Encode(img *scene.ImageData, embed bool) (*EncodedImage, error) {
	switch img.Format {
	case scene.FormatRaw:
		data, err := encodeRGBA(img)
		if err != nil {
			return nil, err
		}
		return &EncodedImage{Data: data, MIME: "image/png", Extension: ".png"}, nil
	case scene.FormatPNG:
		return &EncodedImage{Data: img.Blob, MIME: "image/png", Extension: ".png"}, nil
	case scene.FormatJPEG:
		return &EncodedImage{Data: img.Blob, MIME: "image/jpeg", Extension: ".jpg"}, nil
	case scene.FormatWebP:
		return &EncodedImage{Data: img.Blob, MIME: "image/webp", Extension: ".webp"}, nil
	case scene.FormatKTX2:
		return &EncodedImage{Data: img.Blob, MIME: "image/ktx2", Extension: ".ktx2"}, nil
	case scene.FormatBMP, scene.FormatTIFF:
		src, _, err := image.Decode(bytes.NewReader(img.Blob))
		if err != nil {
			return nil, fmt.Errorf("decoding image %q: %w", img.Name, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return nil, fmt.Errorf("re-encoding image %q: %w", img.Name, err)
		}
		return &EncodedImage{Data: buf.Bytes(), MIME: "image/png", Extension: ".png"}, nil
	default:
		return nil, fmt.Errorf("image %q has unknown format %d", img.Name, img.Format)
	}
}

// encodeRGBA wraps raw RGBA bytes into an image.RGBA and encodes PNG.
func encodeRGBA(img *scene.ImageData) ([]byte, error) {
	want := img.Width * img.Height * 4
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) < want {
		return nil, fmt.Errorf("image %q: %dx%d RGBA needs %d bytes, have %d",
			img.Name, img.Width, img.Height, want, len(img.Pixels))
	}
	rgba := &image.RGBA{
		Pix:    img.Pixels[:want],
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding image %q: %w", img.Name, err)
	}
	return buf.Bytes(), nil
}

package gltf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Binary container constants.
const (
	// GLBMagic is the ASCII tag "glTF" in little-endian order.
	GLBMagic = 0x46546C67
	// GLBVersion is the container format version.
	GLBVersion = 2
	// ChunkJSON is the JSON chunk type tag.
	ChunkJSON = 0x4E4F534A
	// ChunkBIN is the binary chunk type tag ("BIN\0").
	ChunkBIN = 0x004E4942

	glbHeaderLen = 12
	chunkHdrLen  = 8
)

// chunkPadding returns the [0,3] byte count needed to round n up to a
// 4-byte boundary.
func chunkPadding(n int) int {
	return (4 - n%4) % 4
}

// GLBLength returns the total container byte length for a document of
// jsonLen bytes and a payload of binLen bytes. The binary chunk is absent
// when binLen is zero.
func GLBLength(jsonLen, binLen int) int {
	total := glbHeaderLen + chunkHdrLen + jsonLen + chunkPadding(jsonLen)
	if binLen > 0 {
		total += chunkHdrLen + binLen + chunkPadding(binLen)
	}
	return total
}

// WriteGLB writes a binary container holding doc as the JSON chunk and,
// when payload is non-empty, payload as the binary chunk. The JSON chunk
// is padded with ASCII spaces, the binary chunk with zero bytes, each to a
// 4-byte boundary. It returns the number of bytes written, which always
// equals the total-length field of the header.
func WriteGLB(w io.Writer, doc, payload []byte) (int, error) {
	jsonPad := chunkPadding(len(doc))
	binPad := chunkPadding(len(payload))
	total := GLBLength(len(doc), len(payload))

	header := [3]uint32{GLBMagic, GLBVersion, uint32(total)}
	if err := binary.Write(w, binary.LittleEndian, header[:]); err != nil {
		return 0, fmt.Errorf("writing GLB header: %w", err)
	}

	jsonChunk := [2]uint32{uint32(len(doc) + jsonPad), ChunkJSON}
	if err := binary.Write(w, binary.LittleEndian, jsonChunk[:]); err != nil {
		return 0, fmt.Errorf("writing JSON chunk header: %w", err)
	}
	if _, err := w.Write(doc); err != nil {
		return 0, err
	}
	if _, err := w.Write(bytes.Repeat([]byte{' '}, jsonPad)); err != nil {
		return 0, err
	}

	if len(payload) > 0 {
		binChunk := [2]uint32{uint32(len(payload) + binPad), ChunkBIN}
		if err := binary.Write(w, binary.LittleEndian, binChunk[:]); err != nil {
			return 0, fmt.Errorf("writing binary chunk header: %w", err)
		}
		if _, err := w.Write(payload); err != nil {
			return 0, err
		}
		if _, err := w.Write(make([]byte, binPad)); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ReadGLB splits a binary container back into its JSON document and
// binary payload (nil when the container has no binary chunk). Padding is
// kept on both chunks, as the container stores padded lengths only.
func ReadGLB(data []byte) (doc, payload []byte, err error) {
	if len(data) < glbHeaderLen+chunkHdrLen {
		return nil, nil, fmt.Errorf("gltf: container too short (%d bytes)", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:]) != GLBMagic {
		return nil, nil, fmt.Errorf("gltf: bad container magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != GLBVersion {
		return nil, nil, fmt.Errorf("gltf: unsupported container version %d", v)
	}
	if total := binary.LittleEndian.Uint32(data[8:]); int(total) != len(data) {
		return nil, nil, fmt.Errorf("gltf: container length mismatch: header %d, actual %d", total, len(data))
	}

	off := glbHeaderLen
	for off+chunkHdrLen <= len(data) {
		length := int(binary.LittleEndian.Uint32(data[off:]))
		tag := binary.LittleEndian.Uint32(data[off+4:])
		off += chunkHdrLen
		if off+length > len(data) {
			return nil, nil, fmt.Errorf("gltf: chunk overruns container")
		}
		switch tag {
		case ChunkJSON:
			doc = data[off : off+length]
		case ChunkBIN:
			payload = data[off : off+length]
		}
		off += length
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("gltf: container has no JSON chunk")
	}
	return doc, payload, nil
}

// SiblingPayloadName derives the external payload filename for a document
// path by replacing its extension with .bin.
func SiblingPayloadName(docPath string) string {
	base := filepath.Base(docPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".bin"
}

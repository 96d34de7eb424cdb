package scene

// Wrap is a texture coordinate wrapping mode.
type Wrap uint8

// Wrap values.
const (
	Repeat Wrap = iota
	ClampToEdge
	MirroredRepeat
)

// Filter is a texture sampling filter.
type Filter uint8

// Filter values. FilterNone leaves the choice to the consumer.
const (
	FilterNone Filter = iota
	Nearest
	Linear
)

// TextureData describes one texture: a source image plus sampling state.
// The mip filter is kept separate from the minification filter; the
// exporter folds the two into the output sampler's combined enum.
type TextureData struct {
	Image     int // index of a previously added image
	WrapS     Wrap
	WrapT     Wrap
	MinFilter Filter
	MipFilter Filter
	MagFilter Filter
}

// TextureRef points a material slot at a texture, optionally with a UV
// transform (requires the KHR_texture_transform extension on output).
type TextureRef struct {
	Texture  int // index of a previously added texture
	TexCoord int // UV set index
	Offset   *[2]float32
	ScaleUV  *[2]float32
	Rotation float32
}

// MaterialData is a PBR metallic-roughness material description.
type MaterialData struct {
	Name             string
	BaseColor        [4]float32 // RGBA factor; default 1,1,1,1
	BaseColorTexture *TextureRef
	Metallic         float32 // default 1
	Roughness        float32 // default 1
	Emissive         [3]float32
	EmissiveStrength float32 // >1 requires KHR_materials_emissive_strength
	DoubleSided      bool
	Unlit            bool // emitted with KHR_materials_unlit
	AlphaMode        AlphaMode
	AlphaCutoff      float32 // only meaningful for AlphaMask
}

// AlphaMode is the material alpha interpretation.
type AlphaMode uint8

// AlphaMode values.
const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// ImageFormat identifies the encoding of an already-encoded image blob.
type ImageFormat uint8

// ImageFormat values. FormatRaw means Pixels holds unencoded RGBA bytes.
const (
	FormatRaw ImageFormat = iota
	FormatPNG
	FormatJPEG
	FormatWebP
	FormatKTX2
	FormatBMP
	FormatTIFF
)

// ImageData is one source image, either raw RGBA pixels (Width*Height*4
// bytes in Pixels) or a pre-encoded blob in Blob with Format set.
type ImageData struct {
	Name   string
	Width  int
	Height int
	Pixels []byte
	Blob   []byte
	Format ImageFormat
	Embed  bool // prefer embedding into the binary payload over a sibling file
}

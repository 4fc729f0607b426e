package images

import (
	"bytes"
	"sort"
)

// ImageType is the encoding of a holder photo.
type ImageType int

const (
	ImageUnknown ImageType = iota
	ImageJPEG
	ImageJPEG2000
)

func (t ImageType) String() string {
	switch t {
	case ImageJPEG:
		return "jpeg"
	case ImageJPEG2000:
		return "jpeg2000"
	default:
		return "unknown"
	}
}

type signature struct {
	typ ImageType
	sig []byte
}

var signatures = []signature{
	{ImageJPEG2000, []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}}, // JP2 box
	{ImageJPEG2000, []byte{0xFF, 0x4F, 0xFF, 0x51}},                                                 // J2K codestream
	{ImageJPEG, []byte{0xFF, 0xD8, 0xFF}},
}

// DetectImageType reports the encoding of data from its leading signature.
func DetectImageType(data []byte) ImageType {
	for _, s := range signatures {
		if bytes.HasPrefix(data, s.sig) {
			return s.typ
		}
	}
	return ImageUnknown
}

type located struct {
	start int
	typ   ImageType
}

// locatePhoto finds the first image signature in data and returns the image
// bytes from there. The photo in a Secure QR trailer is cut out by offset, so
// it may carry stray bytes on either side.
func locatePhoto(data []byte) ([]byte, ImageType) {
	var starts []located
	for _, s := range signatures {
		if pos := bytes.Index(data, s.sig); pos >= 0 {
			starts = append(starts, located{start: pos, typ: s.typ})
		}
	}
	if len(starts) == 0 {
		return nil, ImageUnknown
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].start < starts[j].start })

	first := starts[0]
	chunk := data[first.start:]
	if first.typ == ImageJPEG {
		// Trim to EOI if present for cleaner decoding.
		if eoi := bytes.LastIndex(chunk, []byte{0xFF, 0xD9}); eoi >= 0 {
			chunk = chunk[:eoi+2]
		}
	}
	return chunk, first.typ
}

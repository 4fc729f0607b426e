package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"pault.ag/go/cbeff/jpeg2000"
)

const (
	photoMaxWidth  = 400
	photoMaxHeight = 400
	photoColors    = 256
)

// PngConverter turns holder photos into base64 PNG strings.
type PngConverter struct{}

func (PngConverter) ConvertToPNG(data []byte) (string, error) {
	return ConvertToPNG(data)
}

// ConvertToPNG decodes a JPEG or JPEG 2000 holder photo, downscales it to fit
// 400x400 and returns it as a base64 encoded, palettised PNG.
func ConvertToPNG(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no image data provided")
	}

	photo, typ := locatePhoto(data)
	slog.Debug("Converting photo to PNG", "data_size", len(data), "photo_size", len(photo), "type", typ)

	img, err := decodeImage(photo, typ)
	if err != nil {
		// Nothing recognisable by signature; let the generic decoders try.
		img, err = decodeImage(data, ImageUnknown)
	}
	if err != nil {
		slog.Warn("Failed to decode photo", "error", err)
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("Photo decoded", "width", bounds.Dx(), "height", bounds.Dy())

	base64Str, err := convertImageToPNGBase64(img, photoMaxWidth, photoMaxHeight, photoColors, png.BestCompression)
	if err != nil {
		slog.Warn("Failed to convert photo to PNG", "error", err)
		return "", fmt.Errorf("failed to convert to PNG: %w", err)
	}

	slog.Debug("Photo converted to PNG", "base64_length", len(base64Str))
	return base64Str, nil
}

// decodeImage decodes data as typ, or sniffs JPEG, JPEG 2000 and the
// registered decoders in that order when the type is unknown.
func decodeImage(data []byte, typ ImageType) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("unsupported or invalid image format")
	}
	switch typ {
	case ImageJPEG:
		return jpeg.Decode(bytes.NewReader(data))
	case ImageJPEG2000:
		return jpeg2000.Parse(data)
	}

	if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := jpeg2000.Parse(data); err == nil {
		return img, nil
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unsupported or invalid image format")
}

// convertImageToPNGBase64 encodes an image to base64 PNG with optional resize and quantization
//
// maxW/maxH: if >0, the image is downscaled to fit within this box (keeping aspect ratio)
// colors:    if >0, convert to a paletted image (≤256 colors is typical for PNG)
// level:     png.DefaultCompression, png.BestCompression, png.BestSpeed, etc.
func convertImageToPNGBase64(img image.Image, maxW, maxH, colors int, level png.CompressionLevel) (string, error) {
	if maxW > 0 || maxH > 0 {
		img = resizeToFit(img, maxW, maxH)
	}

	var out = img
	if colors > 0 {
		pal := palette.Plan9
		if colors <= 216 {
			pal = palette.WebSafe
		}
		dst := image.NewPaletted(img.Bounds(), pal)
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), img, image.Point{})
		out = dst
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, out); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	if maxW <= 0 && maxH <= 0 {
		return src
	}
	if maxW <= 0 {
		scale := float64(maxH) / float64(bh)
		maxW = int(math.Round(float64(bw) * scale))
	}
	if maxH <= 0 {
		scale := float64(maxW) / float64(bw)
		maxH = int(math.Round(float64(bh) * scale))
	}

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom = high quality, good for photos/faces
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

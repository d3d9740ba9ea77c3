// Package imaging prepares camera frames for vision-model upload: decode,
// downscale to a bounded dimension, re-encode as JPEG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// MaxDimension bounds the longest side of an uploaded frame. Vision
	// models gain nothing from higher resolution on street scenes.
	MaxDimension = 800

	// JPEGQuality for re-encoded frames.
	JPEGQuality = 75
)

// Stats reports what a compression pass did to one frame.
type Stats struct {
	OriginalBytes   int
	CompressedBytes int
	OriginalWidth   int
	OriginalHeight  int
	Width           int
	Height          int
	Resized         bool
}

// BytesSaved is zero when compression grew the payload.
func (s Stats) BytesSaved() int {
	if saved := s.OriginalBytes - s.CompressedBytes; saved > 0 {
		return saved
	}
	return 0
}

// Compress decodes data (JPEG or PNG), scales it down so neither side
// exceeds MaxDimension, and re-encodes it as JPEG. Frames already within
// bounds are still re-encoded so the model always receives JPEG.
func Compress(data []byte) ([]byte, Stats, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	stats := Stats{
		OriginalBytes:  len(data),
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}

	w, h := fitWithin(bounds.Dx(), bounds.Dy(), MaxDimension)
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		stats.Resized = true
	}
	stats.Width = w
	stats.Height = h

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, Stats{}, fmt.Errorf("encode frame: %w", err)
	}
	stats.CompressedBytes = buf.Len()

	return buf.Bytes(), stats, nil
}

// fitWithin scales (w, h) down proportionally so the longest side is at
// most max. Dimensions already within bounds are returned unchanged.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, int(float64(h) * float64(max) / float64(w))
	}
	return int(float64(w) * float64(max) / float64(h)), max
}

// DecodeBase64 accepts both bare base64 payloads and data URIs
// ("data:image/jpeg;base64,...") as sent by browser clients.
func DecodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}

package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestImage(t *testing.T, w, h int, asPNG bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if asPNG {
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode png: %v", err)
		}
	} else {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			t.Fatalf("encode jpeg: %v", err)
		}
	}
	return buf.Bytes()
}

func TestCompress_DownscalesLargeFrame(t *testing.T) {
	data := encodeTestImage(t, 1600, 1200, false)

	out, stats, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !stats.Resized {
		t.Error("expected resize for 1600x1200 frame")
	}
	if stats.Width != 800 || stats.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", stats.Width, stats.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("expected width 800, got %d", img.Bounds().Dx())
	}
}

func TestCompress_PortraitOrientation(t *testing.T) {
	data := encodeTestImage(t, 900, 1800, false)

	_, stats, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if stats.Width != 400 || stats.Height != 800 {
		t.Errorf("expected 400x800, got %dx%d", stats.Width, stats.Height)
	}
}

func TestCompress_SmallFrameKeptAtSize(t *testing.T) {
	data := encodeTestImage(t, 640, 480, false)

	_, stats, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if stats.Resized {
		t.Error("640x480 frame must not be resized")
	}
	if stats.Width != 640 || stats.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", stats.Width, stats.Height)
	}
}

func TestCompress_PNGInputBecomesJPEG(t *testing.T) {
	data := encodeTestImage(t, 200, 200, true)

	out, _, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	_, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg, got %s", format)
	}
}

func TestCompress_RejectsGarbage(t *testing.T) {
	if _, _, err := Compress([]byte("not an image")); err == nil {
		t.Error("expected error for non-image input")
	}
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0}
	enc := base64.StdEncoding.EncodeToString(raw)

	for _, input := range []string{enc, "data:image/jpeg;base64," + enc} {
		got, err := DecodeBase64(input)
		if err != nil {
			t.Fatalf("DecodeBase64(%q): %v", input[:20], err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("payload mismatch for %q", input[:20])
		}
	}

	if _, err := DecodeBase64("%%%not-base64%%%"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{800, 600, 800, 800, 600},
		{1600, 1200, 800, 800, 600},
		{1200, 1600, 800, 600, 800},
		{100, 100, 800, 100, 100},
		{2400, 800, 800, 800, 266},
	}
	for _, c := range cases {
		w, h := fitWithin(c.w, c.h, c.max)
		if w != c.wantW || h != c.wantH {
			t.Errorf("fitWithin(%d,%d,%d) = %dx%d, want %dx%d", c.w, c.h, c.max, w, h, c.wantW, c.wantH)
		}
	}
}

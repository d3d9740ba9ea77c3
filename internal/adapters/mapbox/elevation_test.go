package mapbox

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

// terrainTile encodes one elevation across a whole Terrain-RGB tile.
func terrainTile(t *testing.T, elevationM float64) []byte {
	t.Helper()
	v := int((elevationM + 10000) / 0.1)
	c := color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
	for y := 0; y < tileSize; y++ {
		for x := 0; x < tileSize; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode tile: %v", err)
	}
	return buf.Bytes()
}

func newTestSource(t *testing.T, handler http.HandlerFunc) (*Source, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := New("test-token", 14, nil, 0)
	s.baseURL = srv.URL
	return s, srv
}

func TestElevation_DecodesTerrainRGB(t *testing.T) {
	tile := terrainTile(t, 1234.5)
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(tile)
	})

	elev, err := s.Elevation(context.Background(), -0.0917, 34.768)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elev < 1234 || elev > 1235 {
		t.Errorf("expected ~1234.5m, got %g", elev)
	}
}

func TestElevation_ErrorOnBadStatus(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := s.Elevation(context.Background(), -0.0917, 34.768); err == nil {
		t.Error("expected error for missing tile")
	}
}

func TestElevation_RequiresToken(t *testing.T) {
	s := New("", 14, nil, 0)
	if _, err := s.Elevation(context.Background(), 0, 0); err == nil {
		t.Error("expected error without access token")
	}
}

func TestTileAndPixelCoords(t *testing.T) {
	// Greenwich at zoom 1 lands in the north-east quadrant's west edge.
	x, y := tileCoords(51.4779, 0, 1)
	if x != 1 || y != 0 {
		t.Errorf("tileCoords(51.4779, 0, 1) = %d,%d, want 1,0", x, y)
	}

	px, py := pixelCoords(51.4779, 0, x, y, 1)
	if px != 0 {
		t.Errorf("expected pixel x 0 at tile boundary, got %d", px)
	}
	if py < 0 || py >= tileSize {
		t.Errorf("pixel y out of range: %d", py)
	}
}

// Package mapbox implements the elevation port on Mapbox Terrain-RGB tiles.
package mapbox

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const (
	tileSize = 256

	defaultBaseURL = "https://api.mapbox.com/v4/mapbox.terrain-rgb"
)

// Source looks up elevations by fetching and decoding Terrain-RGB tiles.
// Tiles are cached raw (PNG bytes) so neighbouring lookups in the same tile
// cost one fetch.
type Source struct {
	httpClient *http.Client
	cache      ports.CacheService

	baseURL        string
	accessToken    string
	zoom           int
	tileTTLSeconds int
}

// New creates a Source. cache may be nil to disable tile caching.
func New(accessToken string, zoom int, cache ports.CacheService, tileTTLSeconds int) *Source {
	return &Source{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		cache:          cache,
		baseURL:        defaultBaseURL,
		accessToken:    accessToken,
		zoom:           zoom,
		tileTTLSeconds: tileTTLSeconds,
	}
}

// Elevation returns the terrain elevation in meters at the given coordinate.
func (s *Source) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	if s.accessToken == "" {
		return 0, fmt.Errorf("mapbox access token not configured")
	}

	tileX, tileY := tileCoords(lat, lon, s.zoom)

	data, err := s.tile(ctx, tileX, tileY)
	if err != nil {
		return 0, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode terrain tile %d/%d/%d: %w", s.zoom, tileX, tileY, err)
	}

	px, py := pixelCoords(lat, lon, tileX, tileY, s.zoom)
	r, g, b, _ := img.At(px, py).RGBA()

	// Terrain-RGB encoding: -10000 + ((R*256*256 + G*256 + B) * 0.1),
	// with 8-bit channels.
	r8, g8, b8 := float64(r>>8), float64(g>>8), float64(b>>8)
	return -10000 + (r8*65536+g8*256+b8)*0.1, nil
}

func (s *Source) tile(ctx context.Context, x, y int) ([]byte, error) {
	key := fmt.Sprintf("terrain:tile:%d:%d:%d", s.zoom, x, y)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			metrics.CacheHits.WithLabelValues("terrain_tile").Inc()
			return data, nil
		}
		metrics.CacheMisses.WithLabelValues("terrain_tile").Inc()
	}

	url := fmt.Sprintf("%s/%d/%d/%d.pngraw?access_token=%s", s.baseURL, s.zoom, x, y, s.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build tile request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch terrain tile %d/%d/%d: %w", s.zoom, x, y, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch terrain tile %d/%d/%d: status %d", s.zoom, x, y, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read terrain tile: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, s.tileTTLSeconds); err != nil {
			slog.Warn("terrain tile cache store failed", "error", err)
		}
	}
	return data, nil
}

// tileCoords converts a coordinate to slippy-map tile indices.
func tileCoords(lat, lon float64, zoom int) (int, int) {
	latRad := lat * math.Pi / 180
	n := math.Exp2(float64(zoom))
	x := int((lon + 180) / 360 * n)
	y := int((1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n)
	return x, y
}

// pixelCoords locates a coordinate inside its tile.
func pixelCoords(lat, lon float64, tileX, tileY, zoom int) (int, int) {
	latRad := lat * math.Pi / 180
	n := math.Exp2(float64(zoom))

	xFrac := (lon + 180) / 360 * n
	yFrac := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n

	px := clampPixel(int((xFrac - float64(tileX)) * tileSize))
	py := clampPixel(int((yFrac - float64(tileY)) * tileSize))
	return px, py
}

func clampPixel(p int) int {
	if p < 0 {
		return 0
	}
	if p >= tileSize {
		return tileSize - 1
	}
	return p
}

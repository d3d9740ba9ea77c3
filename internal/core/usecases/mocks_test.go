package usecases_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
)

// --- Mock WaypointRepository ---

type mockWaypointRepo struct {
	upsertFn       func(ctx context.Context, wp *domain.Waypoint) error
	upsertBatchFn  func(ctx context.Context, wps []domain.Waypoint) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Waypoint, error)
	findNearbyFn   func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Waypoint, error)
	searchByNameFn func(ctx context.Context, query string, limit int) ([]domain.Waypoint, error)
}

func (m *mockWaypointRepo) Upsert(ctx context.Context, wp *domain.Waypoint) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, wp)
	}
	return nil
}

func (m *mockWaypointRepo) UpsertBatch(ctx context.Context, wps []domain.Waypoint) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, wps)
	}
	return nil
}

func (m *mockWaypointRepo) GetByID(ctx context.Context, id string) (*domain.Waypoint, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockWaypointRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Waypoint, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

func (m *mockWaypointRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.Waypoint, error) {
	if m.searchByNameFn != nil {
		return m.searchByNameFn(ctx, query, limit)
	}
	return nil, nil
}

// --- Mock VisionModel ---

type mockVision struct {
	analyzeJSONFn  func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error)
	generateTextFn func(ctx context.Context, prompt string, opts ports.VisionOptions) (string, error)
}

func (m *mockVision) AnalyzeJSON(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
	if m.analyzeJSONFn != nil {
		return m.analyzeJSONFn(ctx, image, prompt, reasoningToken, opts)
	}
	return nil, fmt.Errorf("model unavailable")
}

func (m *mockVision) GenerateText(ctx context.Context, prompt string, opts ports.VisionOptions) (string, error) {
	if m.generateTextFn != nil {
		return m.generateTextFn(ctx, prompt, opts)
	}
	return "", fmt.Errorf("model unavailable")
}

// --- Mock CacheService ---

type mockCache struct {
	store map[string][]byte
	sets  []string
	gets  []string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.gets = append(m.gets, key)
	if data, ok := m.store[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.sets = append(m.sets, key)
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("cache down")
}
func (failingCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return fmt.Errorf("cache down")
}
func (failingCache) Delete(ctx context.Context, key string) error { return fmt.Errorf("cache down") }

// --- Mock ElevationSource ---

type mockElevation struct {
	elevationFn func(ctx context.Context, lat, lon float64) (float64, error)
}

func (m *mockElevation) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	if m.elevationFn != nil {
		return m.elevationFn(ctx, lat, lon)
	}
	return 0, nil
}

// testFrame returns a small valid JPEG payload.
func testFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

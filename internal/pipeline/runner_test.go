package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/convert"
	"github.com/tayerthiaggo/arcrest2shp/internal/inventory"
	"github.com/tayerthiaggo/arcrest2shp/internal/layer"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// fakeHistory records calls made by the runner.
type fakeHistory struct {
	mu       sync.Mutex
	started  *model.RunSummary
	finished *model.RunSummary
	urls     map[string]string
	layers   int
	errors   int
}

func (h *fakeHistory) StartRun(_ context.Context, s *model.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = s
	return nil
}

func (h *fakeHistory) FinishRun(_ context.Context, s *model.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = s
	return nil
}

func (h *fakeHistory) InsertURL(_ context.Context, _, u, result string, _ int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.urls == nil {
		h.urls = make(map[string]string)
	}
	h.urls[u] = result
	return nil
}

func (h *fakeHistory) InsertLayer(context.Context, string, model.LayerKind, model.InventoryRow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layers++
	return nil
}

func (h *fakeHistory) InsertError(context.Context, string, model.ErrorRow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors++
	return nil
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

// TestRunnerOneBadLayer crawls a service with n layers, one of which lacks
// a spatial reference, and expects n-1 inventory rows and one error row.
func TestRunnerOneBadLayer(t *testing.T) {
	t.Parallel()

	const n = 6
	const bad = 2

	pages := map[string]string{
		"/arcgis/rest/services": listPage("/arcgis/rest/services/Parks/MapServer"),
	}
	var layerLinks []string
	for i := range n {
		p := fmt.Sprintf("/arcgis/rest/services/Parks/MapServer/%d", i)
		layerLinks = append(layerLinks, p)
		srid := 4326
		if i == bad {
			srid = 0
		}
		pages[p] = vectorPage(fmt.Sprintf("Layer %d (ABC%d)", i, i), srid)
	}
	pages["/arcgis/rest/services/Parks/MapServer"] = listPage(layerLinks...)
	srv := newDirectory(t, pages)

	dir := t.TempDir()
	inv, err := inventory.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = inv.Close() })

	// An orphan download from an earlier run, removed by cleanup.
	orphan := filepath.Join(dir, inventory.GeoJSONDir, "stale.geojson")
	if err := os.WriteFile(orphan, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	hist := &fakeHistory{}
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(
		testFetcher(srv),
		layer.NewClassifier(layer.WithLogger(discard)),
		testAOI(t),
		&pointConverter{},
		inv,
		WithHistory(hist),
		WithWorkers(3),
		WithClock(func() time.Time { return fixed }),
		WithRunnerLogger(discard),
	)

	res, err := runner.Run(context.Background(), srv.URL+"/arcgis/rest/services")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector := readCSV(t, filepath.Join(dir, inventory.VectorFile))
	if len(vector) != 1+n-1 {
		t.Errorf("expected %d vector rows, got %d", n-1, len(vector)-1)
	}
	errs := readCSV(t, filepath.Join(dir, inventory.ErrorFile))
	if len(errs) != 2 {
		t.Fatalf("expected exactly one error row, got %d", len(errs)-1)
	}
	row := errs[1]
	if row[0] != "Parks_MapServer_2" {
		t.Errorf("unexpected error name %q", row[0])
	}
	if !strings.HasSuffix(row[1], "/MapServer/2") {
		t.Errorf("unexpected error url %q", row[1])
	}
	if row[2] != "2026-05-04" {
		t.Errorf("unexpected date %q", row[2])
	}
	if !strings.Contains(row[3], "Spatial Reference") {
		t.Errorf("expected spatial reference in error, got %q", row[3])
	}

	s := res.Summary
	if s.Vector != n-1 || s.Errors != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	// Root and service pages are leaves that classify as non-layers.
	if s.Leaves != n+2 || s.Skipped != 2 {
		t.Errorf("expected %d leaves and 2 skipped, got %d and %d", n+2, s.Leaves, s.Skipped)
	}
	if s.Removed != 1 {
		t.Errorf("expected the orphan to be removed, got %d", s.Removed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("expected orphan geojson to be gone")
	}

	if hist.started == nil || hist.finished == nil || hist.started.ID != hist.finished.ID {
		t.Error("expected run to be started and finished in history")
	}
	if len(hist.urls) != n+2 {
		t.Errorf("expected %d visited urls in history, got %d", n+2, len(hist.urls))
	}
	if hist.layers != n-1 || hist.errors != 1 {
		t.Errorf("expected %d layers and 1 error in history, got %d and %d", n-1, hist.layers, hist.errors)
	}
}

// TestRunnerConverterFailure verifies a failed conversion is logged and
// its partial output is still clipped and inventoried.
func TestRunnerConverterFailure(t *testing.T) {
	t.Parallel()

	srv := newDirectory(t, map[string]string{
		"/arcgis/rest/services":                   listPage("/arcgis/rest/services/Roads/MapServer"),
		"/arcgis/rest/services/Roads/MapServer":   listPage("/arcgis/rest/services/Roads/MapServer/0"),
		"/arcgis/rest/services/Roads/MapServer/0": vectorPage("Main Roads (MRWA-01)", 4326),
	})

	partial := convert.Func(func(_ context.Context, req convert.Request) error {
		doc := `{"type":"FeatureCollection","features":[` +
			`{"type":"Feature","properties":{"ROAD":"Stirling Hwy"},"geometry":{"type":"Point","coordinates":[115.5,-31.5]}}]}`
		if err := os.WriteFile(req.OutPath, []byte(doc), 0o600); err != nil {
			return err
		}
		return fmt.Errorf("%w: exit status 1", convert.ErrConverterFailed)
	})

	dir := t.TempDir()
	inv, err := inventory.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = inv.Close() })

	runner := NewRunner(
		testFetcher(srv),
		layer.NewClassifier(layer.WithLogger(discard)),
		testAOI(t),
		partial,
		inv,
		WithRunnerLogger(discard),
	)
	res, err := runner.Run(context.Background(), srv.URL+"/arcgis/rest/services")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector := readCSV(t, filepath.Join(dir, inventory.VectorFile))
	if len(vector) != 2 || vector[1][1] != "MRWA_01_Main_Roads" {
		t.Errorf("expected one MRWA_01_Main_Roads row, got %v", vector)
	}
	errs := readCSV(t, filepath.Join(dir, inventory.ErrorFile))
	if len(errs) != 2 || !strings.Contains(errs[1][3], "download:") {
		t.Errorf("expected one download error row, got %v", errs)
	}
	if s := res.Summary; s.Vector != 1 || s.Errors != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if _, err := os.Stat(filepath.Join(dir, inventory.GeoJSONDir, "MRWA_01_Main_Roads.geojson")); err != nil {
		t.Errorf("partial download of an inventoried layer should be kept: %v", err)
	}
}

// TestRunnerSkipsContainers verifies container URLs are crawled but not
// processed, and rasters are inventoried only when they overlap the AOI.
func TestRunnerSkipsContainers(t *testing.T) {
	t.Parallel()

	srv := newDirectory(t, map[string]string{
		"/arcgis/rest/services": listPage(
			"/arcgis/rest/services/Imagery/MapServer",
			"/arcgis/rest/services/Hydro_FS/MapServer",
		),
		"/arcgis/rest/services/Imagery/MapServer": listPage(
			"/arcgis/rest/services/Imagery/MapServer/0",
			"/arcgis/rest/services/Imagery/MapServer/1",
		),
		"/arcgis/rest/services/Imagery/MapServer/0": rasterPage("Hillshade (LGATE071)", 114, -33, 117, -30),
		"/arcgis/rest/services/Imagery/MapServer/1": rasterPage("Far Away (LGATE072)", 140, -20, 141, -19),
		"/arcgis/rest/services/Hydro_FS/MapServer":  vectorPage("Rivers (DWER001)", 4326),
	})

	dir := t.TempDir()
	inv, err := inventory.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = inv.Close() })

	conv := &pointConverter{}
	runner := NewRunner(testFetcher(srv), layer.NewClassifier(), testAOI(t), conv, inv,
		WithContainerPatterns([]string{"FS/MapServer"}),
		WithRunnerLogger(discard),
	)

	res, err := runner.Run(context.Background(), srv.URL+"/arcgis/rest/services")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.Raster != 1 {
		t.Errorf("expected 1 raster, got %d", res.Summary.Raster)
	}
	if len(conv.requests) != 0 {
		t.Errorf("container must not be downloaded, got %d requests", len(conv.requests))
	}

	raster := readCSV(t, filepath.Join(dir, inventory.RasterFile))
	if len(raster) != 2 {
		t.Fatalf("expected one raster row, got %d", len(raster)-1)
	}
	if raster[1][1] != "LGATE071_Hillshade" || raster[1][6] != model.NoOutputPath {
		t.Errorf("unexpected raster row %v", raster[1])
	}
}

// TestRunnerCancelled verifies a cancelled run still returns a summary.
func TestRunnerCancelled(t *testing.T) {
	t.Parallel()

	srv := newDirectory(t, map[string]string{
		"/arcgis/rest/services": listPage("/arcgis/rest/services/A/MapServer"),
	})
	inv, err := inventory.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = inv.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hist := &fakeHistory{}
	runner := NewRunner(testFetcher(srv), layer.NewClassifier(), testAOI(t), &pointConverter{}, inv,
		WithHistory(hist), WithRunnerLogger(discard))

	res, err := runner.Run(ctx, srv.URL+"/arcgis/rest/services")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if res == nil || res.Summary == nil {
		t.Fatal("expected partial result")
	}
	if hist.finished == nil {
		t.Error("expected the summary to be stored")
	}
}

// TestNameFromURL tests error-row names for unclassified leaves.
func TestNameFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://gis.example.com/arcgis/rest/services/Parks/MapServer/2", "Parks_MapServer_2"},
		{"https://gis.example.com/arcgis/rest/services/", ""},
		{"https://gis.example.com/other/path", "other_path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := NameFromURL(tt.in); got != tt.want {
				t.Errorf("NameFromURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

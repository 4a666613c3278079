package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*RunDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

func testRun(id string, started time.Time) *model.RunSummary {
	return &model.RunSummary{
		ID:        id,
		RootURL:   "https://gis.example.com/arcgis/rest/services",
		AOIPath:   "aoi.geojson",
		OutputDir: "out",
		StartedAt: started,
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopening keeps data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := db.StartRun(context.Background(), testRun("run-1", time.Now())); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()

		run, err := db.GetRun(context.Background(), "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if run == nil {
			t.Error("expected stored run after reopen")
		}
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestRunLifecycle tests StartRun, FinishRun and GetRun.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	run := testRun("6f1c2a9e-1111-2222-3333-444455556666", started)
	if err := db.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.FinishedAt.IsZero() {
		t.Fatalf("expected unfinished run, got %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, got.StartedAt)
	}

	run.FinishedAt = started.Add(90 * time.Second)
	run.Discovered = 42
	run.Vector = 3
	run.Raster = 1
	run.Errors = 2
	if err := db.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = db.GetRun(ctx, "6f1c2a9e")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected run by prefix")
	}
	if got.Discovered != 42 || got.Vector != 3 || got.Raster != 1 || got.Errors != 2 {
		t.Errorf("counts not stored: %+v", got)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("expected 90s duration, got %v", got.Duration())
	}

	t.Run("missing run returns nil", func(t *testing.T) {
		got, err := db.GetRun(ctx, "nope")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("finish unknown run fails", func(t *testing.T) {
		if err := db.FinishRun(ctx, testRun("unknown", started)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("start without ID fails", func(t *testing.T) {
		if err := db.StartRun(ctx, testRun("", started)); err == nil {
			t.Error("expected error")
		}
	})
}

// TestListRuns tests ordering and limits.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := db.StartRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("expected newest first, got %v", ids(runs))
	}

	runs, err = db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func ids(runs []*model.RunSummary) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

// TestLayersAndErrors tests inventory and error rows.
func TestLayersAndErrors(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	row := model.InventoryRow{
		Source:         "DBCA011",
		Name:           "DBCA011_Parks",
		GeometryType:   "esriGeometryPolygon",
		Description:    "Parks",
		URL:            "https://gis.example.com/arcgis/rest/services/Parks/MapServer/2",
		ExtractionDate: date,
		OutPath:        "shp/DBCA011_Parks.shp",
	}
	if err := db.InsertLayer(ctx, "r1", model.KindVector, row); err != nil {
		t.Fatal(err)
	}
	raster := row
	raster.Name = "Imagery"
	raster.OutPath = model.NoOutputPath
	if err := db.InsertLayer(ctx, "r1", model.KindRaster, raster); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertLayer(ctx, "r2", model.KindVector, row); err != nil {
		t.Fatal(err)
	}

	layers, err := db.GetLayers(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Kind != "vector" || layers[1].Kind != "raster" {
		t.Errorf("unexpected kinds %s %s", layers[0].Kind, layers[1].Kind)
	}
	got := layers[0].Row
	if !got.ExtractionDate.Equal(date) {
		t.Errorf("expected date %v, got %v", date, got.ExtractionDate)
	}
	got.ExtractionDate = row.ExtractionDate
	if got != row {
		t.Errorf("row not round-tripped: %+v", layers[0].Row)
	}

	errRow := model.ErrorRow{Name: "Broken", URL: "https://gis.example.com/x/MapServer/9", ExtractionDate: date, Error: "converter failed"}
	if err := db.InsertError(ctx, "r1", errRow); err != nil {
		t.Fatal(err)
	}
	errs, err := db.GetErrors(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].Error != errRow.Error || errs[0].URL != errRow.URL || !errs[0].ExtractionDate.Equal(date) {
		t.Errorf("unexpected errors %+v", errs)
	}
}

// TestInsertURL tests visited URL recording.
func TestInsertURL(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const root = "https://gis.example.com/arcgis/rest/services"
	if err := db.InsertURL(ctx, "r1", root, "links", 5); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertURL(ctx, "r1", root+"/A/MapServer/0", "empty", 0); err != nil {
		t.Fatal(err)
	}
	// Upsert replaces rather than duplicates.
	if err := db.InsertURL(ctx, "r1", root+"/A/MapServer/0", "unresolved", 0); err != nil {
		t.Fatal(err)
	}

	counts, err := db.CountURLs(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if counts["links"] != 1 || counts["unresolved"] != 1 || counts["empty"] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}
}

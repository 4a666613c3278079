package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// File names inside the export directory.
const (
	VectorFile  = "extracted_data_vector.csv"
	RasterFile  = "extracted_data_raster.csv"
	ErrorFile   = "error_log.csv"
	GeoJSONDir  = "geojson"
	ShapeDir    = "shp"
	SummaryFile = "summary.md"
)

// csvFile is an append-only CSV file.
type csvFile struct {
	f *os.File
	w *csv.Writer
}

func openCSV(path string, header []string) (*csvFile, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // output under the export dir
	if err != nil {
		return nil, err
	}
	c := &csvFile{f: f, w: csv.NewWriter(f)}
	if created {
		if err := c.write(header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return c, nil
}

// write appends one record and flushes it so a crash loses nothing.
func (c *csvFile) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Inventory records the outcome of a run under one export directory.
type Inventory struct {
	dir string

	mu       sync.Mutex
	closed   bool
	vector   *csvFile
	raster   *csvFile
	errs     *csvFile
	reserved map[string]bool
}

// Open creates the export directory tree and opens the three CSV files.
func Open(dir string) (*Inventory, error) {
	for _, d := range []string{dir, filepath.Join(dir, GeoJSONDir), filepath.Join(dir, ShapeDir)} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	inv := &Inventory{dir: dir, reserved: make(map[string]bool)}

	var err error
	if inv.vector, err = openCSV(filepath.Join(dir, VectorFile), model.InventoryHeader); err != nil {
		return nil, fmt.Errorf("failed to open vector inventory: %w", err)
	}
	if inv.raster, err = openCSV(filepath.Join(dir, RasterFile), model.InventoryHeader); err != nil {
		_ = inv.vector.f.Close()
		return nil, fmt.Errorf("failed to open raster inventory: %w", err)
	}
	if inv.errs, err = openCSV(filepath.Join(dir, ErrorFile), model.ErrorHeader); err != nil {
		_ = inv.vector.f.Close()
		_ = inv.raster.f.Close()
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}
	return inv, nil
}

// Dir returns the export directory.
func (inv *Inventory) Dir() string {
	return inv.dir
}

// AppendLayer writes row to the inventory for kind.
func (inv *Inventory) AppendLayer(kind model.LayerKind, row model.InventoryRow) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return ErrClosed
	}

	switch kind {
	case model.KindVector:
		return inv.vector.write(row.Record())
	case model.KindRaster:
		return inv.raster.write(row.Record())
	default:
		return fmt.Errorf("no inventory for %s layers", kind)
	}
}

// AppendError writes row to the error log.
func (inv *Inventory) AppendError(row model.ErrorRow) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return ErrClosed
	}
	return inv.errs.write(row.Record())
}

// Reserve returns a GeoJSON path and a shapefile path for name that no
// other caller of this Inventory received and that do not exist on disk.
// Collisions get a numeric suffix: name, name_1, name_2, ...
func (inv *Inventory) Reserve(name string) (geojsonPath, shpPath string, err error) {
	if name == "" {
		return "", "", ErrEmptyName
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	stem := name
	for n := 1; ; n++ {
		if !inv.reserved[stem] && !exists(inv.geojsonPath(stem)) && !exists(inv.shpPath(stem)) {
			break
		}
		stem = name + "_" + strconv.Itoa(n)
	}
	inv.reserved[stem] = true
	return inv.geojsonPath(stem), inv.shpPath(stem), nil
}

func (inv *Inventory) geojsonPath(stem string) string {
	return filepath.Join(inv.dir, GeoJSONDir, stem+".geojson")
}

func (inv *Inventory) shpPath(stem string) string {
	return filepath.Join(inv.dir, ShapeDir, stem+".shp")
}

// Close flushes and closes the CSV files.
func (inv *Inventory) Close() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return nil
	}
	inv.closed = true

	var errs []error
	for _, c := range []*csvFile{inv.vector, inv.raster, inv.errs} {
		c.w.Flush()
		errs = append(errs, c.w.Error(), c.f.Close())
	}
	return errors.Join(errs...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package inventory

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// outPathColumn is the index of Out Path in the layer inventory header.
const outPathColumn = 6

// Cleanup removes GeoJSON files in dir/geojson whose stem matches no Out
// Path in the vector inventory. These are downloads that failed, were
// empty after clipping, or belong to an aborted run. It returns the
// removed paths.
func Cleanup(dir string) ([]string, error) {
	keep, err := referencedStems(filepath.Join(dir, VectorFile))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(dir, GeoJSONDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".geojson") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if keep[stem] {
			continue
		}
		path := filepath.Join(dir, GeoJSONDir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// referencedStems returns the file stems of the Out Path column of a layer
// inventory.
func referencedStems(path string) (map[string]bool, error) {
	keep := make(map[string]bool)

	f, err := os.Open(path) //nolint:gosec // inventory under the export dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return keep, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}
		if len(rec) > outPathColumn && rec[outPathColumn] != "" {
			base := filepath.Base(rec[outPathColumn])
			keep[strings.TrimSuffix(base, filepath.Ext(base))] = true
		}
	}
	return keep, nil
}

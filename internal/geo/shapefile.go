package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// dBase limits.
const (
	maxFieldName   = 10
	stringFieldLen = 254
	floatFieldLen  = 24
	floatFieldDec  = 8
)

// WriteShapefile writes fc as an ESRI Shapefile at path, which must end in
// .shp. The shape type follows the first feature: point, line or polygon.
// Features of another family are skipped. When prj is not empty it is
// written to the sibling .prj file. It returns the number of shapes written.
func WriteShapefile(path string, fc *geojson.FeatureCollection, prj string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	shapeType, ok := familyOf(fc)
	if !ok {
		return 0, ErrNoFeatures
	}

	var rows []*geojson.Feature
	var shapes []shp.Shape
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		s := toShape(f.Geometry, shapeType)
		if s == nil {
			continue
		}
		rows = append(rows, f)
		shapes = append(shapes, s)
	}
	if len(shapes) == 0 {
		return 0, ErrNoFeatures
	}

	fields, keys := attributeFields(rows)

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return 0, fmt.Errorf("failed to create shapefile %s: %w", path, err)
	}
	defer w.Close()

	if err := w.SetFields(fields); err != nil {
		return 0, fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	for i, s := range shapes {
		row := int(w.Write(s))
		if keys == nil {
			if err := w.WriteAttribute(row, 0, i); err != nil {
				return 0, err
			}
			continue
		}
		for col, key := range keys {
			v, ok := cellValue(rows[i].Properties[key], fields[col])
			if !ok {
				continue
			}
			if err := w.WriteAttribute(row, col, v); err != nil {
				return 0, fmt.Errorf("failed to write attribute %s: %w", key, err)
			}
		}
	}

	if prj != "" {
		prjPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
		if err := os.WriteFile(prjPath, []byte(prj), 0o600); err != nil {
			return 0, fmt.Errorf("failed to write projection file: %w", err)
		}
	}
	return len(shapes), nil
}

// familyOf picks the shapefile type from the first feature with geometry.
// Point layers become MULTIPOINT when any feature is a multipoint.
func familyOf(fc *geojson.FeatureCollection) (shp.ShapeType, bool) {
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Point, orb.MultiPoint:
			for _, o := range fc.Features {
				if o == nil {
					continue
				}
				if mp, ok := o.Geometry.(orb.MultiPoint); ok && len(mp) != 1 {
					return shp.MULTIPOINT, true
				}
			}
			return shp.POINT, true
		case orb.LineString, orb.MultiLineString:
			return shp.POLYLINE, true
		case orb.Polygon, orb.MultiPolygon, orb.Bound:
			return shp.POLYGON, true
		}
	}
	return shp.NULL, false
}

func toShape(g orb.Geometry, t shp.ShapeType) shp.Shape {
	switch t {
	case shp.POINT:
		switch v := g.(type) {
		case orb.Point:
			return &shp.Point{X: v[0], Y: v[1]}
		case orb.MultiPoint:
			if len(v) == 1 {
				return &shp.Point{X: v[0][0], Y: v[0][1]}
			}
		}
	case shp.MULTIPOINT:
		var pts []shp.Point
		switch v := g.(type) {
		case orb.Point:
			pts = []shp.Point{{X: v[0], Y: v[1]}}
		case orb.MultiPoint:
			pts = shpPoints(v)
		}
		if len(pts) > 0 {
			return &shp.MultiPoint{Box: shp.BBoxFromPoints(pts), NumPoints: int32(len(pts)), Points: pts}
		}
	case shp.POLYLINE:
		var parts [][]shp.Point
		switch v := g.(type) {
		case orb.LineString:
			parts = [][]shp.Point{shpPoints(v)}
		case orb.MultiLineString:
			for _, ls := range v {
				if len(ls) >= 2 {
					parts = append(parts, shpPoints(ls))
				}
			}
		}
		if len(parts) > 0 {
			return shp.NewPolyLine(parts)
		}
	case shp.POLYGON:
		var parts [][]shp.Point
		switch v := g.(type) {
		case orb.Polygon:
			parts = polygonParts(v)
		case orb.MultiPolygon:
			for _, p := range v {
				parts = append(parts, polygonParts(p)...)
			}
		case orb.Bound:
			parts = polygonParts(v.ToPolygon())
		}
		if len(parts) > 0 {
			p := shp.Polygon(*shp.NewPolyLine(parts))
			return &p
		}
	}
	return nil
}

// polygonParts orders rings the shapefile way: outer clockwise, holes
// counter-clockwise.
func polygonParts(p orb.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(p))
	for i, r := range p {
		if len(r) < 4 {
			continue
		}
		ring := orb.Clone(r).(orb.Ring)
		want := orb.CCW
		if i == 0 {
			want = orb.CW
		}
		if ring.Orientation() != want {
			ring.Reverse()
		}
		parts = append(parts, shpPoints(ring))
	}
	return parts
}

func shpPoints[P ~[]orb.Point](ps P) []shp.Point {
	out := make([]shp.Point, len(ps))
	for i, p := range ps {
		out[i] = shp.Point{X: p[0], Y: p[1]}
	}
	return out
}

// attributeFields derives dBase fields from the union of property keys.
// A key whose values are all numbers gets a float field; anything else is
// stored as text. Without properties a single FID field is written.
func attributeFields(rows []*geojson.Feature) ([]shp.Field, []string) {
	numeric := make(map[string]bool)
	for _, f := range rows {
		for k, v := range f.Properties {
			isNum := true
			switch v.(type) {
			case float64, int, int64:
			case nil:
				if _, seen := numeric[k]; seen {
					continue
				}
			default:
				isNum = false
			}
			if prev, seen := numeric[k]; seen {
				numeric[k] = prev && isNum
			} else {
				numeric[k] = isNum
			}
		}
	}
	if len(numeric) == 0 {
		return []shp.Field{shp.NumberField("FID", 10)}, nil
	}

	keys := make([]string, 0, len(numeric))
	for k := range numeric {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	used := make(map[string]bool, len(keys))
	fields := make([]shp.Field, len(keys))
	for i, k := range keys {
		name := fieldName(k, used)
		if numeric[k] {
			fields[i] = shp.FloatField(name, floatFieldLen, floatFieldDec)
		} else {
			fields[i] = shp.StringField(name, stringFieldLen)
		}
	}
	return fields, keys
}

// fieldName shortens key to a unique dBase column name.
func fieldName(key string, used map[string]bool) string {
	var b strings.Builder
	for _, r := range key {
		if r < utf8.RuneSelf && (r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	base := b.String()
	if base == "" {
		base = "FIELD"
	}
	if len(base) > maxFieldName {
		base = base[:maxFieldName]
	}

	name := base
	for n := 1; used[strings.ToUpper(name)]; n++ {
		suffix := "_" + strconv.Itoa(n)
		cut := min(len(base), maxFieldName-len(suffix))
		name = base[:cut] + suffix
	}
	used[strings.ToUpper(name)] = true
	return name
}

// cellValue renders a property for a dBase cell.
func cellValue(v any, field shp.Field) (string, bool) {
	if v == nil {
		return "", false
	}
	if field.Fieldtype == 'F' {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		default:
			return "", false
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if len(s) > int(field.Size) {
			s = strconv.FormatFloat(f, 'g', 15, 64)
		}
		return s, len(s) <= int(field.Size)
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool, float64, int, int64:
		s = fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		s = string(b)
	}
	return truncateUTF8(s, int(field.Size)), true
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package layer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

func loadPage(t *testing.T, name string) *model.Page {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return &model.Page{URL: "https://gis.example.com/arcgis/rest/services/" + name, Body: body, ContentType: "text/html"}
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// TestClassify tests classification of realistic layer pages.
func TestClassify(t *testing.T) {
	t.Parallel()

	c := NewClassifier()

	t.Run("vector layer", func(t *testing.T) {
		t.Parallel()

		l, err := c.Classify(loadPage(t, "vector.html"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.Kind != model.KindVector {
			t.Errorf("kind = %v, want vector", l.Kind)
		}
		if l.Name != "DBCA011_Parks_and_Reserves" {
			t.Errorf("name = %q", l.Name)
		}
		if l.SRID != 4283 {
			t.Errorf("srid = %d", l.SRID)
		}
		if l.GeometryType != "esriGeometryPolygon" {
			t.Errorf("geometry type = %q", l.GeometryType)
		}
		if !strings.HasPrefix(l.Description, "Legislated lands") {
			t.Errorf("description = %q", l.Description)
		}
		if l.Extent == nil || l.Extent.XMin != 112.92111395200006 {
			t.Errorf("extent = %+v", l.Extent)
		}
	})

	t.Run("raster layer takes code from parent", func(t *testing.T) {
		t.Parallel()

		l, err := c.Classify(loadPage(t, "raster.html"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.Kind != model.KindRaster {
			t.Errorf("kind = %v, want raster", l.Kind)
		}
		if l.Name != "LGATE071_Hillshade" {
			t.Errorf("name = %q", l.Name)
		}
		if l.SRID != 28350 {
			t.Errorf("srid = %d", l.SRID)
		}
		want := model.Extent{XMin: 300000, YMin: 6400000, XMax: 450000, YMax: 6550000}
		if l.Extent == nil || *l.Extent != want {
			t.Errorf("extent = %+v, want %+v", l.Extent, want)
		}
	})

	t.Run("folder page is unknown", func(t *testing.T) {
		t.Parallel()

		l, err := c.Classify(loadPage(t, "folder.html"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.Kind != model.KindUnknown || l.Name != "" {
			t.Errorf("unexpected layer %+v", l)
		}
	})

	t.Run("missing spatial reference is a template error", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{URL: "u", Body: []byte(`<b>Name:</b> Roads<br/><b>Geometry Type:</b> esriGeometryPolyline<br/>`)}
		_, err := c.Classify(page)

		var te *TemplateError
		if !errors.As(err, &te) || te.Field != "Spatial Reference" {
			t.Fatalf("expected spatial reference TemplateError, got %v", err)
		}
		if !errors.Is(err, ErrSpatialReferenceNotFound) {
			t.Errorf("expected ErrSpatialReferenceNotFound")
		}
	})

	t.Run("missing name is a template error", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{URL: "u", Body: []byte(`<b>Geometry Type:</b> esriGeometryPoint<br/>Spatial Reference: 4326`)}
		if _, err := c.Classify(page); !errors.Is(err, ErrNameNotFound) {
			t.Errorf("expected ErrNameNotFound, got %v", err)
		}
	})

	t.Run("raster without extent is a template error", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{URL: "u", Body: []byte(`<b>Name:</b> DEM<br/><b>Type:</b> Raster Layer<br/>Spatial Reference: 3857<br/>XMin: 1.5`)}
		if _, err := c.Classify(page); !errors.Is(err, ErrExtentNotFound) {
			t.Errorf("expected ErrExtentNotFound, got %v", err)
		}
	})

	t.Run("custom name strategy", func(t *testing.T) {
		t.Parallel()

		fixed := NameStrategyFunc(func(*goquery.Document) (string, error) { return "fixed", nil })
		l, err := NewClassifier(WithNameStrategy(fixed)).Classify(loadPage(t, "vector.html"))
		if err != nil {
			t.Fatal(err)
		}
		if l.Name != "fixed" {
			t.Errorf("name = %q", l.Name)
		}
	})
}

// TestKind tests that classification outcomes are disjoint.
func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want model.LayerKind
	}{
		{
			name: "vector marker wins over raster type",
			html: `<b>Type:</b> Raster Layer<br/><b>Geometry Type:</b> esriGeometryPoint<br/>`,
			want: model.KindVector,
		},
		{
			name: "raster type only",
			html: `<b>Type:</b> Raster Layer<br/>`,
			want: model.KindRaster,
		},
		{
			name: "feature layer without geometry marker",
			html: `<b>Type:</b> Feature Layer<br/><b>Geometry Type:</b> <br/>`,
			want: model.KindUnknown,
		},
		{
			name: "neither field",
			html: `<h2>Folder</h2><ul><li>x</li></ul>`,
			want: model.KindUnknown,
		},
		{
			name: "group layer",
			html: `<b>Type:</b> Group Layer<br/>`,
			want: model.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Kind(docFrom(t, tt.html)); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBracketCode tests name and code extraction.
func TestBracketCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{"code is prepended", `<b>Name:</b> Parks (ABC123)<br/>`, "ABC123_Parks"},
		{"last code wins", `<b>Name:</b> Roads (AB12) Main (CD34)<br/>`, "CD34_Roads_AB12_Main"},
		{"letters only is not a code", `<b>Name:</b> Roads (Main)<br/>`, "Roads_Main"},
		{"digits only is not a code", `<b>Name:</b> Roads (2020)<br/>`, "Roads_2020"},
		{"hyphenated code", `<b>Name:</b> Parks (DBCA-011)<br/>`, "DBCA_011_Parks"},
		{"colon code", `<b>Name:</b> Roads (EPSG:4326)<br/>`, "EPSG_4326_Roads"},
		{"dotted code", `<b>Name:</b> Bores (WIR.2020)<br/>`, "WIR_2020_Bores"},
		{"spaced token is not a code", `<b>Name:</b> Roads (Main 2)<br/>`, "Roads_Main_2"},
		{"leading punctuation is not a code", `<b>Name:</b> Roads (-AB12)<br/>`, "Roads_AB12"},
		{"no code and no parent", `<b>Name:</b> Cadastre - Lots &amp; Plans<br/>`, "Cadastre_Lots_Plans"},
		{
			"parent code fallback",
			`<b>Name:</b> Towns<br/><b>Parent Layer:</b> <a href="../1">Localities (LGA055)</a>`,
			"LGA055_Towns",
		},
		{
			"parent without code",
			`<b>Name:</b> Towns<br/><b>Parent Layer:</b> <a href="../1">Localities</a>`,
			"Towns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BracketCode{}.LayerName(docFrom(t, tt.html))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LayerName() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("punctuation-only name fails", func(t *testing.T) {
		t.Parallel()
		if _, err := (BracketCode{}).LayerName(docFrom(t, `<b>Name:</b> ---<br/>`)); !errors.Is(err, ErrNameNotFound) {
			t.Errorf("expected ErrNameNotFound, got %v", err)
		}
	})
}

// TestSanitizeName tests the file-safe name transform.
func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"ABC123_Parks":          "ABC123_Parks",
		"Parks  &  Reserves":    "Parks_Reserves",
		"__lead/trail__":        "lead_trail",
		"Zoné Ärea":             "Zoné_Ärea",
		"a__b":                  "a_b",
		"":                      "",
		"Roads (Main) [v2].shp": "Roads_Main_v2_shp",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestSpatialReference tests SRID extraction.
func TestSpatialReference(t *testing.T) {
	t.Parallel()

	t.Run("text node", func(t *testing.T) {
		t.Parallel()
		srid, err := SpatialReference(docFrom(t, `<ul>Spatial Reference: 102100&nbsp; (3857)</ul>`))
		if err != nil || srid != 102100 {
			t.Errorf("got %d, %v", srid, err)
		}
	})

	t.Run("bold label", func(t *testing.T) {
		t.Parallel()
		srid, err := SpatialReference(docFrom(t, `<b>Spatial Reference:</b> 7844 (7844)`))
		if err != nil || srid != 7844 {
			t.Errorf("got %d, %v", srid, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		if _, err := SpatialReference(docFrom(t, `<b>Name:</b> X`)); !errors.Is(err, ErrSpatialReferenceNotFound) {
			t.Errorf("expected ErrSpatialReferenceNotFound, got %v", err)
		}
	})
}

// TestDeclaredExtent tests coordinate scraping.
func TestDeclaredExtent(t *testing.T) {
	t.Parallel()

	t.Run("integers and exponents", func(t *testing.T) {
		t.Parallel()
		ext, err := DeclaredExtent(docFrom(t, `XMin: -1<br/>YMin: -2.5<br/>XMax: 1e3<br/>YMax: 20`))
		if err != nil {
			t.Fatal(err)
		}
		want := model.Extent{XMin: -1, YMin: -2.5, XMax: 1000, YMax: 20}
		if ext != want {
			t.Errorf("got %+v, want %+v", ext, want)
		}
	})

	t.Run("inverted extent is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := DeclaredExtent(docFrom(t, `XMin: 10<br/>YMin: 0<br/>XMax: 1<br/>YMax: 5`))
		if !errors.Is(err, ErrExtentNotFound) {
			t.Errorf("expected ErrExtentNotFound, got %v", err)
		}
	})
}

// TestStrategyByName tests strategy lookup.
func TestStrategyByName(t *testing.T) {
	t.Parallel()

	if s, err := StrategyByName(""); err != nil || s == nil {
		t.Errorf("default strategy: %v", err)
	}
	if _, err := StrategyByName(StrategyPlain); err != nil {
		t.Errorf("plain strategy: %v", err)
	}
	if _, err := StrategyByName("regex"); !errors.Is(err, ErrUnknownNameStrategy) {
		t.Errorf("expected ErrUnknownNameStrategy, got %v", err)
	}
}

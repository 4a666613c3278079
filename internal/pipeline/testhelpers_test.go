package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/tayerthiaggo/arcrest2shp/internal/convert"
	"github.com/tayerthiaggo/arcrest2shp/internal/crawler"
	"github.com/tayerthiaggo/arcrest2shp/internal/geo"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

var discard = slog.New(slog.DiscardHandler)

// testAOI is a one degree square around (115.5, -31.5) in WGS84.
func testAOI(t *testing.T) *geo.AOI {
	t.Helper()
	poly := orb.Polygon{orb.Ring{{115, -32}, {116, -32}, {116, -31}, {115, -31}, {115, -32}}}
	aoi, err := geo.NewAOI(orb.MultiPolygon{poly}, 4326)
	if err != nil {
		t.Fatal(err)
	}
	return aoi
}

// vectorPage renders a layer page. srid 0 omits the spatial reference.
func vectorPage(name string, srid int) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"rbody\">\n")
	fmt.Fprintf(&b, "<b>Name:</b> %s<br/><br/>\n", name)
	b.WriteString("<b>Type:</b> Feature Layer<br/><br/>\n")
	b.WriteString("<b>Geometry Type:</b> esriGeometryPoint<br/><br/>\n")
	b.WriteString("<b>Description: </b> Test layer.<br/><br/>\n")
	b.WriteString("<b>Extent:</b><br/><ul>\nXMin: 114<br/>\nYMin: -33<br/>\nXMax: 117<br/>\nYMax: -30<br/>\n")
	if srid != 0 {
		fmt.Fprintf(&b, "Spatial Reference: %d&nbsp; (%d)<br/>\n", srid, srid)
	}
	b.WriteString("</ul></div></body></html>")
	return b.String()
}

func rasterPage(name string, xmin, ymin, xmax, ymax float64) string {
	return fmt.Sprintf(`<html><body><div class="rbody">
<b>Name:</b> %s<br/><br/>
<b>Type:</b> Raster Layer<br/><br/>
<b>Description: </b> Imagery.<br/><br/>
<b>Extent:</b><br/><ul>
XMin: %g<br/>
YMin: %g<br/>
XMax: %g<br/>
YMax: %g<br/>
Spatial Reference: 4326&nbsp; (4326)<br/>
</ul></div></body></html>`, name, xmin, ymin, xmax, ymax)
}

func listPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>\n")
	for _, h := range hrefs {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", h, h)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

// newDirectory serves pages keyed by path as text/html.
func newDirectory(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher(srv *httptest.Server) *crawler.Fetcher {
	return crawler.NewFetcher(srv.Client(),
		crawler.WithMaxRetries(0),
		crawler.WithFetcherLogger(discard),
	)
}

// pointConverter writes one point feature at the AOI centre and records
// every request.
type pointConverter struct {
	mu       sync.Mutex
	requests []convert.Request
}

func (c *pointConverter) Convert(_ context.Context, req convert.Request) error {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	doc := `{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","properties":{"NAME":"Kings Park","AREA":4.06},` +
		`"geometry":{"type":"Point","coordinates":[115.5,-31.5]}}]}`
	return os.WriteFile(req.OutPath, []byte(doc), 0o600)
}

// memRecorder keeps recorded rows in memory.
type memRecorder struct {
	mu   sync.Mutex
	rows map[model.LayerKind][]model.InventoryRow
}

func (m *memRecorder) RecordLayer(_ context.Context, kind model.LayerKind, row model.InventoryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = make(map[model.LayerKind][]model.InventoryRow)
	}
	m.rows[kind] = append(m.rows[kind], row)
	return nil
}

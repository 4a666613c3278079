package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
)

var discard = slog.New(slog.DiscardHandler)

// aoiGeoJSON is a one degree square around (115.5, -31.5) in WGS84.
const aoiGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"Polygon","coordinates":[[[115,-32],[116,-32],[116,-31],[115,-31],[115,-32]]]}}]}`

func writeAOI(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aoi.geojson")
	if err := os.WriteFile(path, []byte(aoiGeoJSON), 0600); err != nil {
		t.Fatal(err)
	}
	return path
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

// newDirectory serves a small services directory: one container service
// and two raster layers, one inside the test AOI.
func newDirectory(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/arcgis/rest/services": listPage(
			"/arcgis/rest/services/Hydro_FS/MapServer",
			"/arcgis/rest/services/Imagery/MapServer/0",
			"/arcgis/rest/services/Imagery/MapServer/1",
		),
		"/arcgis/rest/services/Hydro_FS/MapServer": listPage(),
		"/arcgis/rest/services/Imagery/MapServer/0": rasterPage("Hillshade (LGATE071)", 114, -33, 117, -30),
		"/arcgis/rest/services/Imagery/MapServer/1": rasterPage("Far Away (LGATE072)", 140, -20, 141, -19),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig returns a config for srv with retries off and no config file.
func testConfig(srv *httptest.Server) *config.Config {
	cfg := config.NewConfig()
	cfg.RootURL = srv.URL + "/arcgis/rest/services"
	cfg.MaxRetries = 0
	cfg.RetryDelay = 0
	cfg.ServiceConfigs = &config.File{Services: map[string]config.ServiceConfig{}}
	return cfg
}

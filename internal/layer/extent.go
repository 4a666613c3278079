package layer

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// DeclaredExtent reads the XMin, YMin, XMax and YMax values of a layer
// page. Every coordinate must be present.
func DeclaredExtent(doc *goquery.Document) (model.Extent, error) {
	texts := textNodes(doc)

	var ext model.Extent
	targets := []struct {
		name string
		dst  *float64
	}{
		{"XMin", &ext.XMin},
		{"YMin", &ext.YMin},
		{"XMax", &ext.XMax},
		{"YMax", &ext.YMax},
	}
	for _, tg := range targets {
		v, ok := coordinate(doc, texts, tg.name)
		if !ok {
			return model.Extent{}, fmt.Errorf("%w: missing %s", ErrExtentNotFound, tg.name)
		}
		*tg.dst = v
	}

	if !ext.Valid() {
		return model.Extent{}, fmt.Errorf("%w: inverted extent %+v", ErrExtentNotFound, ext)
	}
	return ext, nil
}

// Package main provides the entry point for the arcrest2shp CLI.
//
// arcrest2shp crawls an ArcGIS REST services directory, finds every
// vector and raster layer, downloads the vector layers that intersect an
// area of interest, clips them and exports shapefiles alongside CSV
// inventories.
//
// Usage:
//
//	arcrest2shp run <root-url> --aoi boundary.geojson --output ./out
//	arcrest2shp crawl <root-url>
//	arcrest2shp history
//
// See --help for all available options.
package main

// main is the entry point for arcrest2shp.
func main() {
	Execute()
}

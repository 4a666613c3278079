// Package convert downloads vector layers as GeoJSON.
//
// Two backends implement Converter. Esri2GeoJSON runs the esri2geojson
// command-line tool from the pyesridump project, passing the query envelope
// and its spatial reference. Native talks to the layer's REST query
// endpoint directly and pages through the result with resultOffset, which
// removes the external dependency at the cost of relying on the server's
// f=geojson support (ArcGIS Server 10.4 and later).
//
// Both write WGS84 GeoJSON to the requested path.
package convert

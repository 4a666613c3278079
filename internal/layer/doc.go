// Package layer classifies ArcGIS REST layer pages.
//
// A layer page renders its properties as bold labels followed by a text
// value, for example:
//
//	<b>Name:</b> Parks and Reserves (DBCA011)<br/>
//	<b>Geometry Type:</b> esriGeometryPolygon<br/>
//
// Classify turns such a page into a model.Layer: Vector when the
// "Geometry Type:" value names an esriGeometry, Raster when a "Type:"
// value contains Raster, and Unknown for folder and service pages.
// Layer names are produced by a pluggable NameStrategy so services with
// other naming conventions can be supported without touching the crawler.
package layer

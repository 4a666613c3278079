// Package geo holds the geometry side of arcrest2shp: spatial reference
// lookup and reprojection, the area of interest, bounding-box negotiation
// against layer spatial references, clipping of downloaded features, and
// shapefile export.
//
// Geometries are github.com/paulmach/orb values. Reprojection goes through
// WGS84 longitude/latitude: every supported SRID provides a projection to
// and from WGS84. GDA94, GDA2020, NAD83 and ETRS89 based references are
// treated as coincident with WGS84; the offsets between these datums are
// below two metres, well inside the tolerance of a query envelope.
package geo

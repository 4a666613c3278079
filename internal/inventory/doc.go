// Package inventory owns the extracted_data folder: the geojson/ and shp/
// output directories, the layer inventories, the error log, collision-free
// output names and the final GeoJSON cleanup pass.
//
// Layout:
//
//	extracted_data/
//	  extracted_data_vector.csv
//	  extracted_data_raster.csv
//	  error_log.csv
//	  geojson/<name>.geojson
//	  shp/<name>.shp (+ .shx .dbf .prj)
//
// CSV files are opened in append mode and only get a header when they are
// created, so several runs against the same output folder accumulate rows.
// All methods on Inventory are safe for concurrent use.
package inventory

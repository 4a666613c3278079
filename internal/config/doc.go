// Package config provides configuration structures and utilities for arcrest2shp.
// It defines the options that control crawling an ArcGIS REST directory,
// downloading and clipping layers, and where inventories are written.
package config

// Package model defines the data types shared across arcrest2shp.
//
// These types flow between the crawler, the layer classifier, the
// geometry negotiator and the output writers. They carry no behaviour
// beyond small helpers, so every package can depend on model without
// creating import cycles.
//
// # Core Types
//
//   - Page: a fetched ArcGIS REST directory or layer page
//   - Layer: the descriptor derived from a leaf page
//   - Extent: a declared XMin/YMin/XMax/YMax rectangle
//   - InventoryRow, ErrorRow: records written to the CSV inventories
//   - LayerReport: the outcome of processing one leaf URL
//   - RunSummary: aggregate counts for one run
package model

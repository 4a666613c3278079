// Package pipeline processes leaf URLs after the crawl.
//
// Each leaf runs through a Pipeline of steps: fetch the page, classify it,
// negotiate a bounding box against the area of interest, download vector
// data, clip it and record the result. A step ends the leaf early with
// Skip when there is nothing to do (a folder page, a layer outside the
// AOI, an empty clip); any other error marks the leaf failed.
//
// BatchProcessor fans leaves out over a bounded errgroup. A failing or
// panicking leaf never cancels its siblings. Runner ties the crawl, the
// pool, the inventory and the run history together.
package pipeline

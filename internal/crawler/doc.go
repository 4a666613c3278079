// Package crawler discovers the URLs of an ArcGIS REST services directory.
//
// # Architecture
//
// The package is layered leaves first:
//
//   - Fetcher: HTTP GET with a fixed-delay retry on transient network
//     failure. Non-200 responses fail immediately.
//   - ExtractLinks: pulls the href of every anchor nested in a list item,
//     which is how the REST directory renders its folders, services and layers.
//   - LinkCache: memoizes links per URL as a three-state Result
//     (Links, Empty, Unresolved).
//   - Crawler: iterative depth-first traversal from a root URL. Each call
//     to Crawl owns a fresh Traversal holding the cache and visited set.
//   - Filter: same-host, query-string and glob rules deciding which links
//     are followed, plus the container patterns used to partition the
//     visited set into containers and leaves.
//   - RobotsGuard: optional robots.txt enforcement.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(httpClient, crawler.WithMaxRetries(20))
//	c := crawler.New(fetcher)
//	tr, err := c.Crawl(ctx, "https://host/arcgis/rest/services")
//	containers, leaves := crawler.Partition(tr.Visited(), []string{"FS/MapServer"})
//
// The crawl itself is sequential. ArcGIS servers rate-limit aggressive
// clients, and the worker pool in package pipeline provides the parallelism.
package crawler

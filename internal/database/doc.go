// Package database provides SQLite-based run history for arcrest2shp.
//
// RunDB stores:
//   - one row per run with its root URL, AOI, timings and outcome counts
//   - every URL the crawler visited and how its links resolved
//   - every inventory row and error log row the run produced
//
// The CSV files in the output folder stay the primary artifact; the
// database lets `arcrest2shp history` answer what was extracted when,
// across output folders.
//
// SQLite comes from modernc.org/sqlite, a CGO-free driver, so the binary
// cross-compiles without a C toolchain. The file lives in the XDG data
// directory unless --db-dir says otherwise.
package database

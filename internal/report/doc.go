// Package report renders run results.
//
// Writers:
//   - MarkdownWriter: summary.md next to the inventories
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: machine-readable output for scripts
//
// All writers implement Writer and can be combined with MultiWriter.
package report

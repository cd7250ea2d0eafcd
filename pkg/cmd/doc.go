// Package cmd implements the cobra command tree for the bulkmail CLI: bulk
// sends, recipient list inspection, template compaction, the web shell and
// configuration management.
package cmd

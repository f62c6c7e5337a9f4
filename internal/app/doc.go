// Package app wires the application together: it owns the logger, the
// experiment registry, and the dispatch from a parsed command to the
// resolver, validator, linter, differ, sweep expander, or watcher.
package app

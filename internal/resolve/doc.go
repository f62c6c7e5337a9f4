// Package resolve implements manifest inheritance resolution: following a
// manifest's _BASE_ chain, merging base-then-override key paths, and
// checking a whole config tree for dangling or cyclic base references.
//
// Merging is recursive per mapping: keys present in both documents merge
// section-by-section, and any scalar, tuple, or sequence in the override
// replaces the base value wholesale. The _BASE_ directive itself is consumed
// during resolution and never appears in the output.
package resolve

// Package registry holds the experiment catalog for a single application
// instance: the key schema plus the registered datasets and samplers a
// manifest may name. Validation is a strict parity check between what a
// resolved manifest declares and what the catalog knows about.
package registry

// Package config defines the format-agnostic project model: the master
// settings, the declared slaves and their connections.
//
// A format-specific Loader (see hcl_adapter) fills a Model; the session
// package turns a validated Model into running slaves.
package config

// Package registry provides the catalogue of slave models compiled into the
// binary.
//
// Built-in models are addressed from a project with the `builtin:<name>`
// scheme instead of a path to a slave archive. The Registry resolves such
// addresses into descriptors and instantiates them, so it is both a
// fmi.ResolveFunc and a slave.Loader. Built-in instances keep their state in
// plain Go maps, support checkpoints natively and serialize them with
// msgpack, which makes them deterministic test doubles for the scheduler.
//
// During application startup, every module registers its models and the
// registry is validated so that a malformed built-in model fails fast
// instead of surfacing as a confusing connection error later.
package registry

// Package valuestore provides the per-slave cache of the last values written
// to or read from a slave instance.
//
// # Purpose
//
// The slave wrapper mirrors every value it exchanges into a Store. The
// scheduler is the only writer, but the status endpoint and the output
// recorder read concurrently, so the store must be safe for concurrent use.
//
// # Characteristics
//
//   - **Ephemeral:** created with the slave instance, discarded with it
//   - **Typed:** one map per data type, since value references are only
//     unique within a type
//   - **Write-heavy:** sync.Map keeps readers from blocking the run loop
package valuestore

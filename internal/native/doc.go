// Package native loads FMI 2.0 co-simulation binaries and adapts them to the
// slave capability interfaces.
//
// Shared libraries are opened with purego, so no C toolchain is needed. All
// memory that crosses the boundary and may outlive a single call (instance
// name, GUID, resource location, the callback table, string arguments) is
// allocated with the C allocator and released when the instance is freed.
//
// One logger callback exists per process. Each instance passes a small
// integer as its component environment so that messages are routed back to
// the slave that produced them.
//
// Only linux and darwin are supported; on other platforms every
// instantiation fails with slave.ErrInstantiation.
package native

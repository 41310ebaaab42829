// Package slave wraps one instance of a slave binary.
//
// A Wrapper drives the instance through its lifecycle
//
//	Unloaded → Instantiated → Initializing → Ready → Stepping → Terminated
//
// with Failed reachable from Instantiated onward whenever the binary reports
// an unrecoverable error. Calls made in the wrong state fail with
// ErrInvalidCallSequence and never reach the binary.
//
// The binary itself is reached through capability interfaces: every instance
// is Steppable, and may additionally be Checkpointable and a Serializer. A
// Loader turns a descriptor into a Steppable; the native adapter and the
// built-in model registry are both Loaders.
//
// The wrapper reports failures and never recovers from them. Retry policy
// belongs to the scheduler.
package slave

// Package scheduler drives every slave of a run through simulated time.
//
// # Run states
//
// A Scheduler moves through Configuring, Initializing, Running and then
// Completed. Any fatal error during initialization or the main loop moves it
// to Failed and Run returns a *Failure naming the macro step, the slave and
// the last message the slave logged.
//
// # Coupling
//
// Values travel along graph edges between macro steps. The three coupling
// modes differ in which value a connected input sees:
//
//   - Jacobi reads every source before any slave steps, so inputs hold the
//     outputs of the previous completed step.
//   - Seidel steps slaves in declaration order and reads each source right
//     before its target steps.
//   - Newton repeats Seidel exchanges from a checkpoint of the step start
//     until the exchanged values stop changing.
//
// Slaves are always stepped one at a time; "parallel" in Jacobi mode only
// describes which values are exchanged.
//
// # Step size control
//
// Each macro step runs as a small state machine (couple, estimate, then
// accept, shrink or fail). Rejected steps, convergence failures and, with
// Richardson error control, too large error estimates halve the step size
// and retry from the step-start checkpoint. The step size never drops below
// the configured minimum; a failure at the minimum is fatal.
package scheduler

// Package cli turns command-line arguments into an app.Config. Usage errors
// and help requests are reported as *ExitError so that main can pick the
// process exit code.
package cli

// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle (load the project,
// prepare a session, drive the master scheduler, record outputs),
// decoupled from any specific entrypoint like a CLI.
package app

// Command vaultcast manages notebooks, generates two-host audio episodes
// from their sources and runs the HTTP daemon.
//
// Notebook and episode commands work directly against the local database.
// Commands that start generation or delete notebooks take the daemon lock
// and refuse to run while `vaultcast serve` is up; use the HTTP API then.
package main

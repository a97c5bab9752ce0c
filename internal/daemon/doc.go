// Package daemon coordinates the long-running vaultcast process.
//
// It wires configuration, the SQLite stores, the provider client, the workflow
// manager and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. On start it runs preflight checks, resumes
// interrupted episode jobs and serves the API; on stop it cancels runners,
// which keep their checkpoints for the next start.
//
// Keep orchestration logic here: generation lives in internal/workflow while
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon

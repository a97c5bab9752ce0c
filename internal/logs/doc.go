// Package logs reads the structured log files written by the daemon and the
// CLI. It returns the last N matching lines and follows a file as it grows,
// optionally narrowed to one notebook, job or minimum level.
package logs

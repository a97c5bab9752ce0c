// Package preflight provides readiness checks for the provider and the
// filesystem paths vaultcast depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll on startup and logs every failed check. A
//     failed provider check is not fatal: episodes degrade to local
//     generation.
//   - The API status endpoint and the CLI use the individual checks
//     (CheckProviderFromConfig, CheckFreeSpace) to display health.
package preflight

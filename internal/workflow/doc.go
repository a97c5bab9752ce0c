// Package workflow runs episode generation jobs.
//
// Manager owns one runner goroutine per notebook. A runner walks the job
// through preflight, outlining, a sequential scripting/synthesizing loop over
// the outline segments, and finalizing. Every mutation is checkpointed to a
// jobs.Store so a stopped or restarted daemon resumes at the first segment
// that was not committed.
//
// Provider failures never end a job. Outline and script failures move the job
// to the optimized mode and substitute the local fallback generator for the
// rest of the run. Synthesis failures are retried with a fixed backoff and
// then replaced by a silent segment that keeps its script in the transcript; a
// quota condition at that point moves the job to failsafe, which stops further
// remote synthesis. Observers only see
// Job.Public snapshots and the sequenced event log, where the internal failed
// state reads as optimizing.
package workflow

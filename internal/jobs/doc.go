// Package jobs models an episode generation job and its resumable checkpoint.
//
// A Job is mutated only through its transition methods, which enforce the
// checkpoint invariants: committed audio and transcript never shrink, chunks
// are committed strictly in outline order, mode only degrades, progress never
// decreases, and a ready job is frozen. Stores persist whole jobs keyed by
// notebook; MemoryStore serves tests and ephemeral runs while SQLStore keeps
// checkpoints across daemon restarts.
package jobs

// Package api defines wire-format types, converters and the services behind
// the HTTP API. It translates notebooks, jobs and workflow events into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// Notebook/NotebookSummary: a notebook with source previews and its media list.
//
// Episode: the observer view of a notebook's latest generation job. Internal
// failure states never appear here; the state is already remapped by the
// workflow and the internal diagnostic is stripped.
//
// EventsResponse: the sequenced workflow event log for polling clients.
//
// # Services
//
// NotebookService: create, list, describe, delete and source ingestion.
//
// EpisodeService: start generation, describe the latest job, export WAV.
//
// AssistantService: summary, chat and web search. Provider failures become
// neutral placeholders, never errors.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors carry the services markers; StatusCode maps them to HTTP codes.
package api

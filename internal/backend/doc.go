// Package backend is the generation backend client: outline, script segment,
// speech, artwork, summary, web search and chat answers against the
// configured provider.
//
// Every operation is a single request/response wrapped in the shared backoff
// loop (retry.Do) with a caller-side timeout per attempt. Responses are
// validated against the structural rules the orchestrator depends on (3-6
// outline segments, 1-3 topics, host-only speakers); violations are
// services.ErrMalformed and therefore permanent. Artwork never fails: any
// error yields an empty string. The auxiliary operations expose placeholder
// helpers for HTTP callers that must not see provider errors.
package backend

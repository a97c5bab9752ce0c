// Package llm provides an OpenAI-compatible chat client (OpenRouter by
// default) that requests JSON-only completions.
//
// Each call is a single request/response. Retries belong to the caller, which
// wraps calls in retry.Do; the client only reports failures with enough
// structure for services.Classify: HTTP failures are *services.StatusError
// values carrying the status code and any Retry-After hint, empty completions
// wrap services.ErrTransient, and undecodable payloads wrap
// services.ErrMalformed.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive the JSON payload.
// Client.CompleteJSONWithModel: same, overriding the configured model.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode a payload tolerating code fences and surrounding prose.
package llm

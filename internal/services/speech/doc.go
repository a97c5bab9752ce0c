// Package speech wraps the provider's multi-speaker text-to-speech endpoint.
//
// Requests carry the dialogue text plus a speaker-to-voice map and ask for raw
// PCM16 mono audio at a fixed sample rate. Responses may be raw audio bytes
// or a JSON envelope holding base64 audio; both are returned as base64 so
// callers can checkpoint chunks without further conversion. Non-2xx responses
// surface as services.StatusError for the shared classifier.
package speech

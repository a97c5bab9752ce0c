// Package audio merges base64 PCM16 chunks into an episode, renders silence,
// converts byte lengths to durations, and wraps PCM in a WAV container for
// export.
package audio

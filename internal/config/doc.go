// Package config loads, normalizes, and validates vaultcast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VAULTCAST_API_KEY and NTFY_TOPIC. The Config type centralizes every knob the
// daemon and CLI need: storage locations, the generation provider endpoints,
// orchestrator retry policy, grounding limits, notifications and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

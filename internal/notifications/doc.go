// Package notifications delivers episode events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and degrades to a no-op when notifications are disabled. Workflow code
// depends only on the Service interface.
package notifications

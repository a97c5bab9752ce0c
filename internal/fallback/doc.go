// Package fallback produces deterministic outlines and dialogue without any
// remote provider.
//
// Content comes from a template catalog. The default catalog is embedded;
// operators can point generation.template_catalog at a YAML file with the same
// shape to replace it. Placeholders {title}, {topic}, {source} and {snippet}
// are filled from the notebook, the outline segment and one of its sources.
package fallback

// Package prompt assembles provider prompts for content items from a YAML
// catalog of per-content-type text templates.
package prompt

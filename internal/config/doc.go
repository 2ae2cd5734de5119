// Package config loads server, database, auth, provider, content and
// publishing settings from an optional config.yaml and COURSEGEN_ environment
// variables, and validates them before anything is constructed.
package config

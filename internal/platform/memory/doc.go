// Package memory provides an in-process store.ContentStore used in demo mode
// and by service tests. Items are deep-copied on every read and write.
package memory

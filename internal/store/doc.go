// Package store defines the persistence contract for content items and the
// errors every implementation returns. The PostgreSQL implementation lives in
// internal/platform/postgres and the in-process one in internal/platform/memory.
package store

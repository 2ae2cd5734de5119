// Package domain contains the core business entities of the content studio:
// content items, their generated versions and the version lifecycle rules
// (draft, comparing, published, rejected). It has no knowledge of AI
// providers, persistence or HTTP.
//
// Every state transition is expressed with value semantics: a transition
// method returns a new ContentItem and leaves the receiver untouched, so the
// caller decides whether the result is persisted.
package domain

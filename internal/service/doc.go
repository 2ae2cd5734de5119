// Package service implements the content lifecycle use cases: creating
// content items, generating versions through the AI providers, comparing two
// providers side by side and curating the resulting versions.
//
// Every exported operation returns either the updated content item or an
// *Error carrying a stable Code that the API layer renders to clients.
package service

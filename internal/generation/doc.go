// Package generation defines the uniform contract for AI text-generation
// providers and the machinery every provider shares: the closed error-kind
// vocabulary, retry with capped exponential backoff, usage statistics and
// the provider registry.
//
// Vendor adapters (see internal/platform/gemini and internal/platform/claude)
// implement Backend: a single vendor call plus a vendor-specific error
// classifier. NewAdapter wraps a Backend into a Provider, so retries,
// timing, statistics and error normalization behave the same for every
// vendor and callers never inspect vendor error shapes.
package generation

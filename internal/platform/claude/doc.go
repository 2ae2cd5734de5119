// Package claude adapts Anthropic's Messages API to the
// generation.Provider contract using a plain HTTP client.
//
// The system prompt travels in the request's top-level system field and
// context documents are folded into the single user message. Rate-limit
// budgets are read from the anthropic-ratelimit-* response headers after
// every call.
package claude

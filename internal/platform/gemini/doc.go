// Package gemini adapts Google's Gemini API to the generation.Provider
// contract.
//
// Backend performs a single GenerateContent call through the
// google.golang.org/genai client and classifies genai errors into
// generation.ErrorKind values. NewProvider wraps it in a generation.Adapter,
// which supplies retries, timing and usage statistics.
//
// Context documents are sent as separate text parts ahead of the prompt in
// the same user turn; the system prompt becomes the request's system
// instruction. Gemini does not report rate-limit headers, so RateLimitInfo
// returns the configured estimates.
package gemini

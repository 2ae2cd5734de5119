// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It is a thin adapter over the generation service:
// handlers decode and validate DTOs, call one use case and translate service
// error codes into HTTP statuses and {"error": {code, message}} bodies.
package api

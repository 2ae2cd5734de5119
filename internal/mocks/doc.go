// Package mocks provides shared test doubles for the service, API and
// generation layers.
//
// Each mock has function fields for custom behavior, default return values
// used when no function is set, and mutex-guarded call tracking:
//
//	provider := mocks.NewMockProvider(domain.ProviderClaude, "generated text")
//	provider.GenerateFn = func(ctx context.Context, req generation.Request) (*generation.Response, error) {
//	    return nil, &generation.ServiceError{Kind: generation.ErrorKindRateLimit}
//	}
package mocks

package generation

import (
	"context"
	"errors"
	"sync"

	"github.com/phrazzld/coursegen/internal/domain"
)

// kindError is a test error carrying its own classification.
type kindError struct{ kind ErrorKind }

func (e kindError) Error() string { return "fake failure: " + string(e.kind) }

// fakeBackend replays scripted results, one per call, then repeats the last.
type fakeBackend struct {
	mu      sync.Mutex
	name    domain.ProviderName
	results []fakeResult
	calls   int
	limits  *RateLimitInfo
}

type fakeResult struct {
	resp *Response
	err  error
}

func newFakeBackend(results ...fakeResult) *fakeBackend {
	return &fakeBackend{name: domain.ProviderGemini, results: results}
}

func ok(content string, prompt, completion int) fakeResult {
	return fakeResult{resp: &Response{
		Content:          content,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		FinishReason:     FinishReasonStop,
		Metadata:         ResponseMetadata{Model: "fake-model"},
	}}
}

func fail(kind ErrorKind) fakeResult {
	return fakeResult{err: kindError{kind: kind}}
}

func (f *fakeBackend) Name() domain.ProviderName { return f.name }

func (f *fakeBackend) Call(ctx context.Context, _ Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.results)-1)
	f.calls++
	r := f.results[i]
	if r.resp != nil {
		cp := *r.resp
		return &cp, nil
	}
	return nil, r.err
}

func (f *fakeBackend) Classify(err error) ErrorKind {
	var ke kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	if kind, ok := ClassifyTransport(err); ok {
		return kind
	}
	return ErrorKindUnknown
}

func (f *fakeBackend) RateLimitInfo() *RateLimitInfo { return f.limits }

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

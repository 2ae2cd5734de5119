package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/mocks"
	"github.com/phrazzld/coursegen/internal/platform/memory"
	"github.com/phrazzld/coursegen/internal/prompt"
	"github.com/phrazzld/coursegen/internal/publishing"
	"github.com/phrazzld/coursegen/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordTransition(transition string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[transition]++
}

func (r *countingRecorder) count(transition string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[transition]
}

type fixture struct {
	svc       service.GenerationService
	store     *memory.ContentStore
	gemini    *mocks.MockProvider
	claude    *mocks.MockProvider
	publisher *mocks.MockPublisher
	recorder  *countingRecorder
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	maxVersions    int
	claudeMissing  bool
	publisherUnset bool
}

func withMaxVersions(n int) fixtureOption {
	return func(c *fixtureConfig) { c.maxVersions = n }
}

func withoutClaude() fixtureOption {
	return func(c *fixtureConfig) { c.claudeMissing = true }
}

func withoutPublisher() fixtureOption {
	return func(c *fixtureConfig) { c.publisherUnset = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		store:     memory.NewContentStore(),
		gemini:    mocks.NewMockProvider(domain.ProviderGemini, "# Gemini course"),
		claude:    mocks.NewMockProvider(domain.ProviderClaude, "# Claude course"),
		publisher: &mocks.MockPublisher{PageID: "page-1"},
		recorder:  &countingRecorder{},
	}

	factories := map[domain.ProviderName]generation.Factory{
		domain.ProviderGemini: func(context.Context) (generation.Provider, error) { return f.gemini, nil },
		domain.ProviderClaude: func(context.Context) (generation.Provider, error) { return f.claude, nil },
	}
	if cfg.claudeMissing {
		factories[domain.ProviderClaude] = func(context.Context) (generation.Provider, error) {
			return nil, fmt.Errorf("%w: claude api key is empty", generation.ErrInvalidConfig)
		}
	}
	registry := generation.NewRegistry(context.Background(), nil, factories)

	catalog, err := prompt.Default()
	require.NoError(t, err)

	deps := service.Dependencies{
		Store:     f.store,
		Providers: registry,
		Prompts:   catalog,
		Publisher: f.publisher,
		Recorder:  f.recorder,
	}
	if cfg.publisherUnset {
		deps.Publisher = nil
	}

	clock := baseTime
	var mu sync.Mutex
	svc, err := service.NewGenerationService(deps, service.Config{
		MaxVersions: cfg.maxVersions,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, specs domain.Specifications) *domain.ContentItem {
	t.Helper()
	item, err := f.svc.CreateContent(context.Background(), service.CreateContentInput{
		SubjectID:      uuid.New(),
		ContentType:    domain.ContentTypeCourse,
		Title:          "Genetics",
		Specifications: specs,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) generate(t *testing.T, id uuid.UUID, provider domain.ProviderName) *domain.ContentItem {
	t.Helper()
	item, err := f.svc.Generate(context.Background(), id, service.GenerateInput{Provider: provider})
	require.NoError(t, err)
	return item
}

func requireCode(t *testing.T, err error, code service.Code) *service.Error {
	t.Helper()
	require.Error(t, err)
	var svcErr *service.Error
	require.True(t, errors.As(err, &svcErr), "expected *service.Error, got %T: %v", err, err)
	assert.Equal(t, code, svcErr.Code, svcErr.Error())
	return svcErr
}

func TestNewGenerationServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := service.NewGenerationService(service.Dependencies{}, service.Config{})
	requireCode(t, err, service.CodeInternal)
}

func TestCreateContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	item := f.create(t, nil)
	stored, err := f.svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Genetics", stored.Title)

	_, err = f.svc.CreateContent(context.Background(), service.CreateContentInput{
		SubjectID:   uuid.New(),
		ContentType: "poster",
		Title:       "x",
	})
	requireCode(t, err, service.CodeInvalidInput)

	_, err = f.svc.Get(context.Background(), uuid.New())
	requireCode(t, err, service.CodeContentNotFound)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	item := f.create(t, domain.Specifications{"durationMinutes": 50})

	updated, err := f.svc.Generate(context.Background(), item.ID, service.GenerateInput{
		Provider:    domain.ProviderGemini,
		Constraints: "Use SI units.",
	})
	require.NoError(t, err)

	require.Len(t, updated.Versions, 1)
	v, ok := updated.CurrentVersion()
	require.True(t, ok)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, domain.VersionStatusDraft, v.Status)
	assert.Equal(t, domain.ProviderGemini, v.ProviderUsed)
	assert.Equal(t, "# Gemini course", v.Content)
	assert.Equal(t, 30, v.Metadata.TokensUsed)
	assert.Equal(t, "gemini-test-model", v.Metadata.ModelName)
	require.NotNil(t, v.Metadata.Temperature)

	req := f.gemini.LastRequest()
	assert.Contains(t, req.Prompt, `titled "Genetics"`)
	assert.Contains(t, req.Prompt, "about 50 minutes")
	assert.Contains(t, req.Prompt, "Additional constraints:\nUse SI units.")
	assert.Equal(t, req.Prompt, v.PromptUsed)
	assert.NotEmpty(t, req.SystemPrompt)
	assert.Zero(t, f.claude.Calls())
	assert.Equal(t, 1, f.recorder.count("generate"))

	stored, err := f.svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Versions, 1)
}

func TestGenerateWithPromptOverrideAndContextDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	source := f.create(t, nil)
	f.generate(t, source.ID, domain.ProviderClaude)
	_, err := f.svc.Publish(context.Background(), source.ID, 1, service.PublishOptions{})
	require.NoError(t, err)

	item := f.create(t, domain.Specifications{
		"sourceContentIds": []any{source.ID.String(), uuid.NewString()},
	})
	_, err = f.svc.Generate(context.Background(), item.ID, service.GenerateInput{
		Provider:       domain.ProviderGemini,
		PromptOverride: "  Write ten exercises on Mendel.  ",
	})
	require.NoError(t, err)

	req := f.gemini.LastRequest()
	assert.Equal(t, "Write ten exercises on Mendel.", req.Prompt)
	require.Len(t, req.ContextDocuments, 1)
	assert.Equal(t, "# Genetics\n\n# Claude course", req.ContextDocuments[0])
}

func TestGenerateFailures(t *testing.T) {
	t.Parallel()

	t.Run("provider error keeps versions untouched", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.gemini.Err = &generation.ServiceError{Provider: domain.ProviderGemini, Kind: generation.ErrorKindQuotaExceeded}

		_, err := f.svc.Generate(context.Background(), item.ID, service.GenerateInput{Provider: domain.ProviderGemini})
		svcErr := requireCode(t, err, service.Code("QUOTA_EXCEEDED"))
		assert.Equal(t, generation.ErrorKindQuotaExceeded.Message(), svcErr.Message)

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Versions)
	})

	t.Run("unavailable provider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withoutClaude())
		item := f.create(t, nil)

		_, err := f.svc.Generate(context.Background(), item.ID, service.GenerateInput{Provider: domain.ProviderClaude})
		svcErr := requireCode(t, err, service.CodeProviderUnavailable)
		assert.ErrorIs(t, svcErr, generation.ErrProviderUnavailable)
	})

	t.Run("unknown provider name", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)

		_, err := f.svc.Generate(context.Background(), item.ID, service.GenerateInput{Provider: "gpt"})
		requireCode(t, err, service.CodeInvalidInput)
	})

	t.Run("full item fails before calling the provider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withMaxVersions(2))
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)
		f.generate(t, item.ID, domain.ProviderGemini)

		_, err := f.svc.Generate(context.Background(), item.ID, service.GenerateInput{Provider: domain.ProviderGemini})
		requireCode(t, err, service.CodeVersionLimitExceeded)
		assert.Equal(t, 2, f.gemini.Calls())
	})
}

func TestRegenerate(t *testing.T) {
	t.Parallel()

	t.Run("rejects previous draft and makes the new version current", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)

		updated, err := f.svc.Regenerate(context.Background(), item.ID, service.RegenerateInput{
			Provider:    domain.ProviderClaude,
			Constraints: "Shorter please.",
		})
		require.NoError(t, err)

		require.Len(t, updated.Versions, 2)
		v1, _ := updated.Version(1)
		assert.Equal(t, domain.VersionStatusRejected, v1.Status)
		assert.Equal(t, "regenerated with claude", v1.RejectionReason)

		current, ok := updated.CurrentVersion()
		require.True(t, ok)
		assert.Equal(t, 2, current.VersionNumber)
		assert.Equal(t, domain.VersionStatusDraft, current.Status)
		assert.Equal(t, domain.ProviderClaude, current.ProviderUsed)

		req := f.claude.LastRequest()
		assert.Equal(t, v1.PromptUsed+"\n\nAdditional constraints:\nShorter please.", req.Prompt)
		assert.Equal(t, 1, f.recorder.count("regenerate"))
	})

	t.Run("same provider fails before any provider call", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderClaude)

		_, err := f.svc.Regenerate(context.Background(), item.ID, service.RegenerateInput{Provider: domain.ProviderClaude})
		requireCode(t, err, service.CodeSameProviderRegenerate)
		assert.Equal(t, 1, f.claude.Calls())
		assert.Zero(t, f.gemini.Calls())
	})

	t.Run("published current version stays published", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)
		_, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{})
		require.NoError(t, err)

		updated, err := f.svc.Regenerate(context.Background(), item.ID, service.RegenerateInput{Provider: domain.ProviderClaude})
		require.NoError(t, err)
		v1, _ := updated.Version(1)
		assert.Equal(t, domain.VersionStatusPublished, v1.Status)
		current, _ := updated.CurrentVersion()
		assert.Equal(t, 2, current.VersionNumber)
	})

	t.Run("no versions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)

		_, err := f.svc.Regenerate(context.Background(), item.ID, service.RegenerateInput{Provider: domain.ProviderClaude})
		requireCode(t, err, service.CodeVersionNotFound)
	})

	t.Run("provider failure leaves the item unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)
		f.claude.Err = &generation.ServiceError{Provider: domain.ProviderClaude, Kind: generation.ErrorKindTimeout}

		_, err := f.svc.Regenerate(context.Background(), item.ID, service.RegenerateInput{Provider: domain.ProviderClaude})
		requireCode(t, err, service.Code("TIMEOUT"))

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		require.Len(t, stored.Versions, 1)
		assert.Equal(t, domain.VersionStatusDraft, stored.Versions[0].Status)
	})
}

func TestCompare(t *testing.T) {
	t.Parallel()

	t.Run("adds both candidates as comparing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)

		updated, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{Constraints: "Keep it short."})
		require.NoError(t, err)

		require.Len(t, updated.Versions, 2)
		for _, v := range updated.Versions {
			assert.Equal(t, domain.VersionStatusComparing, v.Status)
		}
		assert.Equal(t, domain.ProviderGemini, updated.Versions[0].ProviderUsed)
		assert.Equal(t, domain.ProviderClaude, updated.Versions[1].ProviderUsed)
		assert.Nil(t, updated.CurrentVersionIndex)
		assert.Equal(t, f.gemini.LastRequest(), f.claude.LastRequest())
		assert.Equal(t, 1, f.recorder.count("compare"))

		published, err := f.svc.Publish(context.Background(), item.ID, 2, service.PublishOptions{})
		require.NoError(t, err)
		current, ok := published.Item.CurrentVersion()
		require.True(t, ok)
		assert.Equal(t, domain.ProviderClaude, current.ProviderUsed)
	})

	t.Run("keeps the published version current", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)
		_, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{})
		require.NoError(t, err)

		updated, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		require.NoError(t, err)
		require.Len(t, updated.Versions, 3)
		require.NotNil(t, updated.CurrentVersionIndex)
		assert.Equal(t, 0, *updated.CurrentVersionIndex)
		current, ok := updated.CurrentVersion()
		require.True(t, ok)
		assert.Equal(t, domain.VersionStatusPublished, current.Status)
	})

	t.Run("calls run concurrently", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)

		var inFlight atomic.Int32
		release := make(chan struct{})
		wait := func(resp *generation.Response) func(context.Context, generation.Request) (*generation.Response, error) {
			return func(ctx context.Context, _ generation.Request) (*generation.Response, error) {
				if inFlight.Add(1) == 2 {
					close(release)
				}
				select {
				case <-release:
					r := *resp
					return &r, nil
				case <-time.After(5 * time.Second):
					return nil, errors.New("calls were not concurrent")
				}
			}
		}
		f.gemini.GenerateFn = wait(f.gemini.Response)
		f.claude.GenerateFn = wait(f.claude.Response)

		_, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		require.NoError(t, err)
	})

	t.Run("one provider failing adds nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.claude.Err = &generation.ServiceError{
			Provider: domain.ProviderClaude,
			Kind:     generation.ErrorKindRateLimit,
			Attempts: 4,
		}

		_, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		svcErr := requireCode(t, err, service.CodeOneProviderFailed)
		assert.Equal(t, "OK", svcErr.Details["gemini"])
		assert.Equal(t, "RATE_LIMIT", svcErr.Details["claude"])
		assert.Contains(t, svcErr.Message, "use regenerate with gemini")
		assert.Equal(t, 1, f.gemini.Calls())

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Versions)
	})

	t.Run("both failing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.gemini.Err = &generation.ServiceError{Provider: domain.ProviderGemini, Kind: generation.ErrorKindNetwork}
		f.claude.Err = &generation.ServiceError{Provider: domain.ProviderClaude, Kind: generation.ErrorKindAuthentication}

		_, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		svcErr := requireCode(t, err, service.CodeBothProvidersFailed)
		assert.Equal(t, "NETWORK_ERROR", svcErr.Details["gemini"])
		assert.Equal(t, "AUTHENTICATION_ERROR", svcErr.Details["claude"])

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Versions)
	})

	t.Run("needs two free slots", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withMaxVersions(3))
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderGemini)
		f.generate(t, item.ID, domain.ProviderGemini)

		_, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		requireCode(t, err, service.CodeVersionLimitExceeded)
		assert.Equal(t, 2, f.gemini.Calls())
		assert.Zero(t, f.claude.Calls())
	})

	t.Run("requires every provider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withoutClaude())
		item := f.create(t, nil)

		_, err := f.svc.Compare(context.Background(), item.ID, service.CompareInput{})
		requireCode(t, err, service.CodeProviderUnavailable)
		assert.Zero(t, f.gemini.Calls())
	})
}

func TestPublish(t *testing.T) {
	t.Parallel()

	t.Run("demotes the previous published version", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		for i := 0; i < 3; i++ {
			f.generate(t, item.ID, domain.ProviderGemini)
		}
		_, err := f.svc.Publish(context.Background(), item.ID, 2, service.PublishOptions{})
		require.NoError(t, err)

		result, err := f.svc.Publish(context.Background(), item.ID, 3, service.PublishOptions{})
		require.NoError(t, err)
		v2, _ := result.Item.Version(2)
		v3, _ := result.Item.Version(3)
		assert.Equal(t, domain.VersionStatusDraft, v2.Status)
		assert.Equal(t, domain.VersionStatusPublished, v3.Status)
		assert.NotNil(t, v3.PublishedAt)
		require.NotNil(t, result.Item.CurrentVersionIndex)
		assert.Equal(t, 2, *result.Item.CurrentVersionIndex)
		assert.False(t, result.Exported)
		assert.Nil(t, result.ExportError)
		assert.Equal(t, 2, f.recorder.count("publish"))
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)

		_, err := f.svc.Publish(context.Background(), item.ID, 4, service.PublishOptions{})
		requireCode(t, err, service.CodeVersionNotFound)
	})

	t.Run("exports and stores the page id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderClaude)

		result, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{Export: true})
		require.NoError(t, err)
		assert.True(t, result.Exported)
		assert.Equal(t, "page-1", result.Item.ExternalPageID)
		require.Len(t, f.publisher.Pages, 1)
		assert.Equal(t, publishing.Page{Title: "Genetics", Markdown: "# Claude course"}, f.publisher.Pages[0])

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, "page-1", stored.ExternalPageID)
	})

	t.Run("export failure keeps the publish", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderClaude)
		f.publisher.PageID = ""
		f.publisher.Err = errors.New("notion is down")

		result, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{Export: true})
		require.NoError(t, err)
		require.NotNil(t, result.ExportError)
		assert.Equal(t, service.CodePublishingFailed, result.ExportError.Code)

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		published, ok := stored.PublishedVersion()
		require.True(t, ok)
		assert.Equal(t, 1, published.VersionNumber)
		assert.Empty(t, stored.ExternalPageID)
	})

	t.Run("partially written page keeps its id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderClaude)
		f.publisher.PageID = "page-partial"
		f.publisher.Err = errors.New("append children failed")

		result, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{Export: true})
		require.NoError(t, err)
		require.NotNil(t, result.ExportError)
		assert.Equal(t, service.CodePublishingFailed, result.ExportError.Code)
		assert.False(t, result.Exported)
		assert.Equal(t, "page-partial", result.Item.ExternalPageID)

		stored, err := f.svc.Get(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, "page-partial", stored.ExternalPageID)
		published, ok := stored.PublishedVersion()
		require.True(t, ok)
		assert.Equal(t, 1, published.VersionNumber)
	})

	t.Run("export without a publisher", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withoutPublisher())
		item := f.create(t, nil)
		f.generate(t, item.ID, domain.ProviderClaude)

		result, err := f.svc.Publish(context.Background(), item.ID, 1, service.PublishOptions{Export: true})
		require.NoError(t, err)
		require.NotNil(t, result.ExportError)
		assert.Equal(t, service.CodePublishingNotConfigured, result.ExportError.Code)
	})
}

func TestRejectPromotePrune(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	item := f.create(t, nil)
	for i := 0; i < 4; i++ {
		f.generate(t, item.ID, domain.ProviderGemini)
	}
	ctx := context.Background()

	rejected, err := f.svc.Reject(ctx, item.ID, 1, "too long")
	require.NoError(t, err)
	v1, _ := rejected.Version(1)
	assert.Equal(t, domain.VersionStatusRejected, v1.Status)
	assert.Equal(t, "too long", v1.RejectionReason)

	_, err = f.svc.Reject(ctx, item.ID, 1, "again")
	requireCode(t, err, service.CodeInvalidTransition)

	promoted, err := f.svc.Promote(ctx, item.ID, 1)
	require.NoError(t, err)
	require.Len(t, promoted.Versions, 5)
	v5, _ := promoted.Version(5)
	assert.Equal(t, domain.VersionStatusPublished, v5.Status)
	v1, _ = promoted.Version(1)
	assert.Equal(t, domain.VersionStatusRejected, v1.Status)

	pruned, err := f.svc.Prune(ctx, item.ID, 1)
	require.NoError(t, err)
	var numbers []int
	for _, v := range pruned.Versions {
		numbers = append(numbers, v.VersionNumber)
	}
	assert.Equal(t, []int{4, 5}, numbers)

	_, err = f.svc.Prune(ctx, item.ID, -1)
	requireCode(t, err, service.CodeInvalidInput)

	assert.Equal(t, 1, f.recorder.count("reject"))
	assert.Equal(t, 1, f.recorder.count("promote"))
	assert.Equal(t, 1, f.recorder.count("prune"))
}

func TestDeleteAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	item := f.create(t, nil)
	items, err := f.svc.ListBySubject(ctx, item.SubjectID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, f.svc.Delete(ctx, item.ID))
	requireCode(t, f.svc.Delete(ctx, item.ID), service.CodeContentNotFound)
}

func TestProviderStatuses(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withoutClaude())

	statuses := f.svc.ProviderStatuses(context.Background(), true)
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.ProviderGemini, statuses[0].Name)
	assert.True(t, statuses[0].Available)
	assert.Equal(t, domain.ProviderClaude, statuses[1].Name)
	assert.False(t, statuses[1].Available)
	assert.NotEmpty(t, statuses[1].Reason)
}

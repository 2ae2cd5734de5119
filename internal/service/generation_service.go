package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/platform/logger"
	"github.com/phrazzld/coursegen/internal/prompt"
	"github.com/phrazzld/coursegen/internal/publishing"
	"github.com/phrazzld/coursegen/internal/store"
	"golang.org/x/sync/errgroup"
)

// ProviderSource resolves provider names to shared provider instances.
// *generation.Registry satisfies it.
type ProviderSource interface {
	Get(name domain.ProviderName) (generation.Provider, error)
	Statuses(ctx context.Context, probe bool) []generation.ProviderStatus
}

// PromptBuilder renders the default prompt for a content item.
// *prompt.Catalog satisfies it.
type PromptBuilder interface {
	Build(item domain.ContentItem, constraints string) (prompt.Prompt, error)
}

// TransitionRecorder counts lifecycle operations, e.g. for metrics.
type TransitionRecorder interface {
	RecordTransition(transition string)
}

// CreateContentInput describes a new content item.
type CreateContentInput struct {
	SubjectID      uuid.UUID
	ContentType    domain.ContentType
	Title          string
	Specifications domain.Specifications
}

// GenerateInput requests a fresh generation with one provider.
type GenerateInput struct {
	Provider domain.ProviderName
	// PromptOverride replaces the catalog prompt when set.
	PromptOverride string
	// Constraints are appended to the prompt as plain text.
	Constraints string
}

// RegenerateInput requests a new version from a different provider than the
// current version's.
type RegenerateInput struct {
	Provider       domain.ProviderName
	PromptOverride string
	Constraints    string
}

// CompareInput requests one candidate from every known provider.
type CompareInput struct {
	PromptOverride string
	Constraints    string
}

// PublishOptions controls the optional export of a published version.
type PublishOptions struct {
	Export bool
}

// PublishResult is the outcome of Publish. ExportError is set when the
// export was requested and failed; the publish itself still succeeded.
type PublishResult struct {
	Item        *domain.ContentItem
	Exported    bool
	ExportError *Error
}

// GenerationService is the use-case layer for content generation and version
// curation. Mutations of one content item must be serialized by the caller or
// are rejected with CodeConcurrentModification by the store's revision check.
type GenerationService interface {
	CreateContent(ctx context.Context, in CreateContentInput) (*domain.ContentItem, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Generate(ctx context.Context, id uuid.UUID, in GenerateInput) (*domain.ContentItem, error)
	Regenerate(ctx context.Context, id uuid.UUID, in RegenerateInput) (*domain.ContentItem, error)
	Compare(ctx context.Context, id uuid.UUID, in CompareInput) (*domain.ContentItem, error)

	Publish(ctx context.Context, id uuid.UUID, versionNumber int, opts PublishOptions) (*PublishResult, error)
	Reject(ctx context.Context, id uuid.UUID, versionNumber int, reason string) (*domain.ContentItem, error)
	Promote(ctx context.Context, id uuid.UUID, versionNumber int) (*domain.ContentItem, error)
	Prune(ctx context.Context, id uuid.UUID, keepCount int) (*domain.ContentItem, error)

	ProviderStatuses(ctx context.Context, probe bool) []generation.ProviderStatus
}

// Dependencies are the collaborators of the generation service. Store,
// Providers and Prompts are required.
type Dependencies struct {
	Store     store.ContentStore
	Providers ProviderSource
	Prompts   PromptBuilder
	Publisher publishing.Publisher
	Recorder  TransitionRecorder
	Logger    *slog.Logger
}

// Config holds the tunables of the generation service.
type Config struct {
	MaxVersions int
	// Now is the clock used for version timestamps. Defaults to time.Now in UTC.
	Now func() time.Time
}

type generationServiceImpl struct {
	store       store.ContentStore
	providers   ProviderSource
	prompts     PromptBuilder
	publisher   publishing.Publisher
	recorder    TransitionRecorder
	logger      *slog.Logger
	maxVersions int
	now         func() time.Time
}

var _ GenerationService = (*generationServiceImpl)(nil)

// NewGenerationService creates a GenerationService.
// It returns an error if any required dependency is nil.
func NewGenerationService(deps Dependencies, cfg Config) (GenerationService, error) {
	if deps.Store == nil {
		return nil, newError("create_service", CodeInternal, "store cannot be nil", nil)
	}
	if deps.Providers == nil {
		return nil, newError("create_service", CodeInternal, "providers cannot be nil", nil)
	}
	if deps.Prompts == nil {
		return nil, newError("create_service", CodeInternal, "prompts cannot be nil", nil)
	}

	if deps.Publisher == nil {
		deps.Publisher = publishing.Disabled{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MaxVersions <= 0 {
		cfg.MaxVersions = domain.DefaultMaxVersions
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &generationServiceImpl{
		store:       deps.Store,
		providers:   deps.Providers,
		prompts:     deps.Prompts,
		publisher:   deps.Publisher,
		recorder:    deps.Recorder,
		logger:      deps.Logger.With("component", "generation_service"),
		maxVersions: cfg.MaxVersions,
		now:         cfg.Now,
	}, nil
}

func (s *generationServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

func (s *generationServiceImpl) record(transition string) {
	if s.recorder != nil {
		s.recorder.RecordTransition(transition)
	}
}

// CreateContent validates and stores a new content item without versions.
func (s *generationServiceImpl) CreateContent(ctx context.Context, in CreateContentInput) (*domain.ContentItem, error) {
	const op = "create_content"

	item, err := domain.NewContentItem(in.SubjectID, in.ContentType, in.Title, in.Specifications)
	if err != nil {
		return nil, newError(op, CodeInvalidInput, err.Error(), err)
	}

	if err := s.store.Create(ctx, item); err != nil {
		s.log(ctx).Error("failed to store content item", "error", err, "content_id", item.ID)
		return nil, wrapError(op, err)
	}

	s.log(ctx).Info("content item created",
		"content_id", item.ID,
		"content_type", item.ContentType)
	return item, nil
}

// Get returns a content item.
func (s *generationServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError("get_content", err)
	}
	return item, nil
}

// ListBySubject returns the content items of a subject, newest first.
func (s *generationServiceImpl) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error) {
	items, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, wrapError("list_content", err)
	}
	return items, nil
}

// Delete removes a content item and its versions.
func (s *generationServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapError("delete_content", err)
	}
	s.log(ctx).Info("content item deleted", "content_id", id)
	return nil
}

// Generate asks one provider for a new version built from the catalog prompt,
// or from the override. The new draft becomes the current version; earlier
// versions keep their status.
func (s *generationServiceImpl) Generate(ctx context.Context, id uuid.UUID, in GenerateInput) (*domain.ContentItem, error) {
	const op = "generate"

	item, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCapacity(op, *item, 1); err != nil {
		return nil, err
	}
	provider, err := s.provider(op, in.Provider)
	if err != nil {
		return nil, err
	}

	req, err := s.buildRequest(ctx, *item, in.PromptOverride, in.Constraints, "")
	if err != nil {
		return nil, wrapError(op, err)
	}

	data, err := s.call(ctx, provider, req, domain.VersionStatusDraft)
	if err != nil {
		return nil, wrapError(op, err)
	}

	updated, err := item.AddVersion(data, s.maxVersions, s.now())
	if err != nil {
		return nil, wrapError(op, err)
	}
	if updated, err = updated.SetCurrentVersion(updated.LastVersionNumber); err != nil {
		return nil, wrapError(op, err)
	}

	if err := s.save(ctx, op, &updated); err != nil {
		return nil, err
	}
	s.record(op)
	s.log(ctx).Info("generated content version",
		"content_id", id,
		"provider", in.Provider,
		"version", updated.LastVersionNumber)
	return &updated, nil
}

// Regenerate asks a different provider than the current version's for a new
// version. The previous current version is rejected if it was still a draft
// or being compared, and the new draft becomes current.
func (s *generationServiceImpl) Regenerate(ctx context.Context, id uuid.UUID, in RegenerateInput) (*domain.ContentItem, error) {
	const op = "regenerate"

	target, err := domain.ParseProvider(string(in.Provider))
	if err != nil {
		return nil, newError(op, CodeInvalidInput, err.Error(), err)
	}

	item, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	base, ok := item.ActiveVersion()
	if !ok {
		return nil, newError(op, CodeVersionNotFound,
			"the content item has no version to regenerate; generate one first", domain.ErrVersionNotFound)
	}
	if base.ProviderUsed == target {
		return nil, newError(op, CodeSameProviderRegenerate,
			fmt.Sprintf("version %d was already generated with %s; choose another provider",
				base.VersionNumber, target), nil)
	}
	if err := s.checkCapacity(op, *item, 1); err != nil {
		return nil, err
	}
	provider, err := s.provider(op, target)
	if err != nil {
		return nil, err
	}

	req, err := s.buildRequest(ctx, *item, in.PromptOverride, in.Constraints, base.PromptUsed)
	if err != nil {
		return nil, wrapError(op, err)
	}

	data, err := s.call(ctx, provider, req, domain.VersionStatusDraft)
	if err != nil {
		return nil, wrapError(op, err)
	}

	now := s.now()
	updated := *item
	if current, ok := item.CurrentVersion(); ok &&
		domain.CanTransition(current.Status, domain.VersionStatusRejected) {
		updated, err = updated.RejectVersion(current.VersionNumber, "regenerated with "+string(target), now)
		if err != nil {
			return nil, wrapError(op, err)
		}
	}
	if updated, err = updated.AddVersion(data, s.maxVersions, now); err != nil {
		return nil, wrapError(op, err)
	}
	if updated, err = updated.SetCurrentVersion(updated.LastVersionNumber); err != nil {
		return nil, wrapError(op, err)
	}

	if err := s.save(ctx, op, &updated); err != nil {
		return nil, err
	}
	s.record(op)
	s.log(ctx).Info("regenerated content version",
		"content_id", id,
		"provider", target,
		"replaced_version", base.VersionNumber,
		"version", updated.LastVersionNumber)
	return &updated, nil
}

type candidate struct {
	provider domain.ProviderName
	data     domain.VersionData
	err      error
}

// Compare asks every known provider for a candidate concurrently. Both
// candidates are added as comparing versions, or, if any provider fails,
// nothing is added.
func (s *generationServiceImpl) Compare(ctx context.Context, id uuid.UUID, in CompareInput) (*domain.ContentItem, error) {
	const op = "compare"

	item, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	names := domain.KnownProviders()
	if err := s.checkCapacity(op, *item, len(names)); err != nil {
		return nil, err
	}

	providers := make([]generation.Provider, len(names))
	for i, name := range names {
		if providers[i], err = s.provider(op, name); err != nil {
			return nil, err
		}
	}

	base := ""
	if v, ok := item.ActiveVersion(); ok {
		base = v.PromptUsed
	}
	req, err := s.buildRequest(ctx, *item, in.PromptOverride, in.Constraints, base)
	if err != nil {
		return nil, wrapError(op, err)
	}

	// Each call reports into its own slot and never returns an error to the
	// group, so one failure cannot cancel the other call.
	results := make([]candidate, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			data, err := s.call(ctx, providers[i], req, domain.VersionStatusComparing)
			results[i] = candidate{provider: names[i], data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := compareFailure(op, results); err != nil {
		s.log(ctx).Warn("comparison failed", "content_id", id, "code", err.Code, "details", err.Details)
		return nil, err
	}

	now := s.now()
	updated := *item
	for _, c := range results {
		if updated, err = updated.AddVersion(c.data, s.maxVersions, now); err != nil {
			return nil, wrapError(op, err)
		}
	}

	if err := s.save(ctx, op, &updated); err != nil {
		return nil, err
	}
	s.record(op)
	s.log(ctx).Info("added comparison versions",
		"content_id", id,
		"versions", len(results),
		"last_version", updated.LastVersionNumber)
	return &updated, nil
}

// compareFailure returns nil when every candidate succeeded.
func compareFailure(op string, results []candidate) *Error {
	var failed, succeeded []candidate
	for _, c := range results {
		if c.err != nil {
			failed = append(failed, c)
		} else {
			succeeded = append(succeeded, c)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	details := make(map[string]string, len(results))
	errs := make([]error, 0, len(failed))
	for _, c := range failed {
		details[string(c.provider)] = string(CodeOf(c.err))
		errs = append(errs, c.err)
	}
	for _, c := range succeeded {
		details[string(c.provider)] = "OK"
	}

	if len(succeeded) == 0 {
		e := newError(op, CodeBothProvidersFailed, codeMessages[CodeBothProvidersFailed], errors.Join(errs...))
		e.Details = details
		return e
	}

	e := newError(op, CodeOneProviderFailed,
		fmt.Sprintf("%s failed (%s); use regenerate with %s instead",
			failed[0].provider, CodeOf(failed[0].err), succeeded[0].provider),
		errors.Join(errs...))
	e.Details = details
	return e
}

// Publish makes the given version the single published version. With
// opts.Export the content is also sent to the publisher; an export failure
// is reported in the result and never undoes the publish.
func (s *generationServiceImpl) Publish(
	ctx context.Context,
	id uuid.UUID,
	versionNumber int,
	opts PublishOptions,
) (*PublishResult, error) {
	const op = "publish"

	updated, err := s.transition(ctx, op, id, func(item domain.ContentItem) (domain.ContentItem, error) {
		return item.PublishVersion(versionNumber, s.now())
	})
	if err != nil {
		return nil, err
	}

	result := &PublishResult{Item: updated}
	if !opts.Export {
		return result, nil
	}

	version, err := updated.Version(versionNumber)
	if err != nil {
		return nil, wrapError(op, err)
	}

	pageID, exportErr := s.publisher.Publish(ctx, publishing.Page{Title: updated.Title, Markdown: version.Content})
	if exportErr != nil {
		code := CodeOf(exportErr)
		if code != CodePublishingNotConfigured {
			code = CodePublishingFailed
		}
		result.ExportError = newError("export", code, codeMessages[code], exportErr)
		s.log(ctx).Error("failed to export published version",
			"error", exportErr,
			"content_id", id,
			"version", versionNumber,
			"page_id", pageID)
		// A page that was created but not fully written is still linked so a
		// retry can find it.
		if pageID == "" {
			return result, nil
		}
	}

	exported := *updated
	exported.ExternalPageID = pageID
	if err := s.store.Save(ctx, &exported); err != nil {
		if result.ExportError == nil {
			result.ExportError = newError("export", CodeOf(err),
				"the page was exported but its id could not be stored", err)
		}
		s.log(ctx).Error("failed to store external page id",
			"error", err,
			"content_id", id,
			"page_id", pageID)
		return result, nil
	}

	result.Item = &exported
	if exportErr != nil {
		return result, nil
	}
	s.record("export")
	result.Exported = true
	return result, nil
}

// Reject marks a version rejected. The current version index is unchanged.
func (s *generationServiceImpl) Reject(
	ctx context.Context,
	id uuid.UUID,
	versionNumber int,
	reason string,
) (*domain.ContentItem, error) {
	return s.transition(ctx, "reject", id, func(item domain.ContentItem) (domain.ContentItem, error) {
		return item.RejectVersion(versionNumber, reason, s.now())
	})
}

// Promote publishes a version. A rejected version is copied into a new
// version which is published instead.
func (s *generationServiceImpl) Promote(ctx context.Context, id uuid.UUID, versionNumber int) (*domain.ContentItem, error) {
	return s.transition(ctx, "promote", id, func(item domain.ContentItem) (domain.ContentItem, error) {
		return item.PromoteVersion(versionNumber, s.maxVersions, s.now())
	})
}

// Prune keeps the published version plus the keepCount most recent others.
func (s *generationServiceImpl) Prune(ctx context.Context, id uuid.UUID, keepCount int) (*domain.ContentItem, error) {
	if keepCount < 0 {
		return nil, newError("prune", CodeInvalidInput, "keep count cannot be negative", nil)
	}
	return s.transition(ctx, "prune", id, func(item domain.ContentItem) (domain.ContentItem, error) {
		return item.PruneVersions(keepCount), nil
	})
}

// ProviderStatuses reports the configured providers, optionally probing them.
func (s *generationServiceImpl) ProviderStatuses(ctx context.Context, probe bool) []generation.ProviderStatus {
	return s.providers.Statuses(ctx, probe)
}

// transition loads an item, applies fn and saves the result.
func (s *generationServiceImpl) transition(
	ctx context.Context,
	op string,
	id uuid.UUID,
	fn func(domain.ContentItem) (domain.ContentItem, error),
) (*domain.ContentItem, error) {
	item, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	updated, err := fn(*item)
	if err != nil {
		s.log(ctx).Debug("version transition refused", "op", op, "content_id", id, "error", err)
		return nil, wrapError(op, err)
	}

	if err := s.save(ctx, op, &updated); err != nil {
		return nil, err
	}
	s.record(op)
	s.log(ctx).Info("applied version transition", "op", op, "content_id", id)
	return &updated, nil
}

func (s *generationServiceImpl) load(ctx context.Context, op string, id uuid.UUID) (*domain.ContentItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError(op, err)
	}
	return item, nil
}

func (s *generationServiceImpl) save(ctx context.Context, op string, item *domain.ContentItem) error {
	if err := s.store.Save(ctx, item); err != nil {
		s.log(ctx).Error("failed to save content item", "op", op, "content_id", item.ID, "error", err)
		return wrapError(op, err)
	}
	return nil
}

func (s *generationServiceImpl) checkCapacity(op string, item domain.ContentItem, needed int) error {
	if item.RemainingCapacity(s.maxVersions) >= needed {
		return nil
	}
	return newError(op, CodeVersionLimitExceeded,
		fmt.Sprintf("the content item holds %d of %d versions and needs %d free; prune old versions first",
			len(item.Versions), s.maxVersions, needed),
		domain.ErrVersionLimitExceeded)
}

func (s *generationServiceImpl) provider(op string, name domain.ProviderName) (generation.Provider, error) {
	parsed, err := domain.ParseProvider(string(name))
	if err != nil {
		return nil, newError(op, CodeInvalidInput, err.Error(), err)
	}
	p, err := s.providers.Get(parsed)
	if err != nil {
		return nil, newError(op, CodeProviderUnavailable,
			fmt.Sprintf("provider %s is not available", parsed), err)
	}
	return p, nil
}

// buildRequest assembles the provider request. The user prompt is the
// override if given, else basePrompt if given, else the catalog prompt; the
// constraints are appended in every case. Sampling settings and the system
// prompt always come from the catalog.
func (s *generationServiceImpl) buildRequest(
	ctx context.Context,
	item domain.ContentItem,
	override, constraints, basePrompt string,
) (generation.Request, error) {
	built, err := s.prompts.Build(item, constraints)
	if err != nil {
		return generation.Request{}, err
	}

	user := built.User
	switch {
	case strings.TrimSpace(override) != "":
		user = prompt.WithConstraints(strings.TrimSpace(override), constraints)
	case strings.TrimSpace(basePrompt) != "":
		user = prompt.WithConstraints(basePrompt, constraints)
	}

	return generation.Request{
		Prompt:           user,
		SystemPrompt:     built.System,
		ContextDocuments: s.contextDocuments(ctx, item),
		Config: generation.GenerationConfig{
			Temperature: built.Temperature,
			MaxTokens:   built.MaxTokens,
		},
	}, nil
}

// contextDocuments returns the published, else active, content of every item
// listed in the specifications' sourceContentIds. Lookup failures only drop
// documents.
func (s *generationServiceImpl) contextDocuments(ctx context.Context, item domain.ContentItem) []string {
	ids := item.Specifications.SourceContentIDs()
	if len(ids) == 0 {
		return nil
	}

	sources, err := s.store.GetMany(ctx, ids)
	if err != nil {
		s.log(ctx).Warn("failed to load source content", "content_id", item.ID, "error", err)
		return nil
	}

	var docs []string
	for _, src := range sources {
		if src.ID == item.ID {
			continue
		}
		v, ok := src.PublishedVersion()
		if !ok {
			v, ok = src.ActiveVersion()
		}
		if !ok {
			continue
		}
		docs = append(docs, "# "+src.Title+"\n\n"+v.Content)
	}
	return docs
}

// call runs one provider request and converts the response into version data.
func (s *generationServiceImpl) call(
	ctx context.Context,
	provider generation.Provider,
	req generation.Request,
	status domain.VersionStatus,
) (domain.VersionData, error) {
	start := s.now()
	resp, err := provider.Generate(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.log(ctx).Warn("provider call failed",
			"provider", provider.Name(),
			"kind", generation.KindOf(err),
			"duration", elapsed)
		return domain.VersionData{}, err
	}

	durationMs := elapsed.Milliseconds()
	if resp.Metadata.Latency > 0 {
		durationMs = resp.Metadata.Latency.Milliseconds()
	}

	return domain.VersionData{
		Status:       status,
		ProviderUsed: provider.Name(),
		PromptUsed:   req.Prompt,
		Content:      resp.Content,
		Metadata: domain.GenerationMetadata{
			TokensUsed:   resp.TokensUsed,
			DurationMs:   durationMs,
			ModelName:    resp.Metadata.Model,
			ModelVersion: resp.Metadata.ModelVersion,
			Temperature:  req.Config.Temperature,
			MaxTokens:    req.Config.MaxTokens,
		},
	}, nil
}

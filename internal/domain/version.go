package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// VersionStatus is the lifecycle state of a single content version.
type VersionStatus string

// Possible version status values
const (
	VersionStatusDraft     VersionStatus = "draft"
	VersionStatusComparing VersionStatus = "comparing"
	VersionStatusPublished VersionStatus = "published"
	VersionStatusRejected  VersionStatus = "rejected"
)

// Version validation errors
var (
	ErrVersionNumberInvalid = errors.New("version number must be positive")
	ErrInvalidVersionStatus = errors.New("invalid version status")
	ErrVersionProviderEmpty = errors.New("version provider cannot be empty")
	ErrNegativeUsage        = errors.New("tokens used and duration cannot be negative")
)

// GenerationMetadata records how a version was produced.
type GenerationMetadata struct {
	TokensUsed   int      `json:"tokens_used"`
	DurationMs   int64    `json:"duration_ms"`
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
}

// ContentVersion is one generation result. Only the status envelope
// (Status, PublishedAt, RejectedAt, RejectionReason) changes after creation.
type ContentVersion struct {
	VersionNumber   int                `json:"version_number"`
	Status          VersionStatus      `json:"status"`
	ProviderUsed    ProviderName       `json:"provider_used"`
	PromptUsed      string             `json:"prompt_used"`
	Content         string             `json:"content"`
	Metadata        GenerationMetadata `json:"generation_metadata"`
	CreatedAt       time.Time          `json:"created_at"`
	PublishedAt     *time.Time         `json:"published_at,omitempty"`
	RejectedAt      *time.Time         `json:"rejected_at,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
}

// VersionData is the input for AddVersion. Status defaults to draft.
type VersionData struct {
	Status       VersionStatus
	ProviderUsed ProviderName
	PromptUsed   string
	Content      string
	Metadata     GenerationMetadata
}

// Validate checks that the version has valid data.
func (v *ContentVersion) Validate() error {
	if v.VersionNumber <= 0 {
		return ErrVersionNumberInvalid
	}

	if !IsValidVersionStatus(v.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidVersionStatus, v.Status)
	}

	if v.ProviderUsed == "" {
		return ErrVersionProviderEmpty
	}

	if strings.TrimSpace(v.Content) == "" {
		return ErrEmptyContent
	}

	if v.Metadata.TokensUsed < 0 || v.Metadata.DurationMs < 0 {
		return ErrNegativeUsage
	}

	return nil
}

// IsValidVersionStatus checks if the given status is a valid VersionStatus.
func IsValidVersionStatus(status VersionStatus) bool {
	switch status {
	case VersionStatusDraft, VersionStatusComparing, VersionStatusPublished, VersionStatusRejected:
		return true
	default:
		return false
	}
}

// allowedTransitions lists the forward moves of the version state machine.
// published -> draft is not listed: it only happens as the demotion side
// effect of publishing another version.
var allowedTransitions = map[VersionStatus][]VersionStatus{
	VersionStatusDraft:     {VersionStatusComparing, VersionStatusPublished, VersionStatusRejected},
	VersionStatusComparing: {VersionStatusPublished, VersionStatusRejected},
}

// CanTransition reports whether a version may move from one status to another.
func CanTransition(from, to VersionStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// clone returns a copy of the item whose Versions slice and current index
// can be mutated without affecting the receiver.
func (c ContentItem) clone() ContentItem {
	out := c
	out.Versions = make([]ContentVersion, len(c.Versions))
	copy(out.Versions, c.Versions)
	if c.CurrentVersionIndex != nil {
		idx := *c.CurrentVersionIndex
		out.CurrentVersionIndex = &idx
	}
	return out
}

// FindVersion returns the slice position of the given version number.
func (c ContentItem) FindVersion(versionNumber int) (int, bool) {
	for i := range c.Versions {
		if c.Versions[i].VersionNumber == versionNumber {
			return i, true
		}
	}
	return -1, false
}

// Version returns a copy of the version with the given number.
func (c ContentItem) Version(versionNumber int) (ContentVersion, error) {
	idx, ok := c.FindVersion(versionNumber)
	if !ok {
		return ContentVersion{}, fmt.Errorf("%w: %d", ErrVersionNotFound, versionNumber)
	}
	return c.Versions[idx], nil
}

// CurrentVersion returns the version pointed at by CurrentVersionIndex.
func (c ContentItem) CurrentVersion() (ContentVersion, bool) {
	if c.CurrentVersionIndex == nil {
		return ContentVersion{}, false
	}
	idx := *c.CurrentVersionIndex
	if idx < 0 || idx >= len(c.Versions) {
		return ContentVersion{}, false
	}
	return c.Versions[idx], true
}

// LatestVersion returns the version with the highest version number.
func (c ContentItem) LatestVersion() (ContentVersion, bool) {
	if len(c.Versions) == 0 {
		return ContentVersion{}, false
	}
	latest := c.Versions[0]
	for _, v := range c.Versions[1:] {
		if v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	return latest, true
}

// ActiveVersion returns the current version, falling back to the latest one.
func (c ContentItem) ActiveVersion() (ContentVersion, bool) {
	if v, ok := c.CurrentVersion(); ok {
		return v, true
	}
	return c.LatestVersion()
}

// PublishedVersion returns the published version, if any.
func (c ContentItem) PublishedVersion() (ContentVersion, bool) {
	for _, v := range c.Versions {
		if v.Status == VersionStatusPublished {
			return v, true
		}
	}
	return ContentVersion{}, false
}

// RemainingCapacity returns how many versions can still be added.
func (c ContentItem) RemainingCapacity(maxVersions int) int {
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	if remaining := maxVersions - len(c.Versions); remaining > 0 {
		return remaining
	}
	return 0
}

// nextVersionNumber is one above the highest number ever assigned.
func (c ContentItem) nextVersionNumber() int {
	highest := c.LastVersionNumber
	for _, v := range c.Versions {
		if v.VersionNumber > highest {
			highest = v.VersionNumber
		}
	}
	return highest + 1
}

// AddVersion appends a new version. It fails with ErrVersionLimitExceeded when
// the item already holds maxVersions versions. CurrentVersionIndex is unchanged.
func (c ContentItem) AddVersion(data VersionData, maxVersions int, now time.Time) (ContentItem, error) {
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	if len(c.Versions) >= maxVersions {
		return c, fmt.Errorf("%w: %d of %d versions used", ErrVersionLimitExceeded, len(c.Versions), maxVersions)
	}

	status := data.Status
	if status == "" {
		status = VersionStatusDraft
	}
	if status != VersionStatusDraft && status != VersionStatusComparing {
		return c, fmt.Errorf("%w: new versions start as draft or comparing, got %q", ErrInvalidTransition, status)
	}

	version := ContentVersion{
		VersionNumber: c.nextVersionNumber(),
		Status:        status,
		ProviderUsed:  data.ProviderUsed,
		PromptUsed:    data.PromptUsed,
		Content:       data.Content,
		Metadata:      data.Metadata,
		CreatedAt:     now.UTC(),
	}
	if err := version.Validate(); err != nil {
		return c, err
	}

	out := c.clone()
	out.Versions = append(out.Versions, version)
	out.LastVersionNumber = version.VersionNumber
	out.UpdatedAt = now.UTC()
	return out, nil
}

// PublishVersion publishes the given version, demotes any other published
// version to draft and makes the target current. Publishing the version that
// is already published only re-points the current index.
func (c ContentItem) PublishVersion(versionNumber int, now time.Time) (ContentItem, error) {
	idx, ok := c.FindVersion(versionNumber)
	if !ok {
		return c, fmt.Errorf("%w: %d", ErrVersionNotFound, versionNumber)
	}

	target := c.Versions[idx]
	if target.Status != VersionStatusPublished && !CanTransition(target.Status, VersionStatusPublished) {
		return c, &TransitionError{VersionNumber: versionNumber, From: target.Status, To: VersionStatusPublished}
	}

	out := c.clone()
	ts := now.UTC()
	for i := range out.Versions {
		if i != idx && out.Versions[i].Status == VersionStatusPublished {
			out.Versions[i].Status = VersionStatusDraft
			out.Versions[i].PublishedAt = nil
		}
	}

	if out.Versions[idx].Status != VersionStatusPublished {
		out.Versions[idx].Status = VersionStatusPublished
		out.Versions[idx].PublishedAt = &ts
	}
	out.CurrentVersionIndex = &idx
	out.UpdatedAt = ts
	return out, nil
}

// RejectVersion marks a version rejected with an optional reason.
// CurrentVersionIndex is unchanged.
func (c ContentItem) RejectVersion(versionNumber int, reason string, now time.Time) (ContentItem, error) {
	idx, ok := c.FindVersion(versionNumber)
	if !ok {
		return c, fmt.Errorf("%w: %d", ErrVersionNotFound, versionNumber)
	}

	from := c.Versions[idx].Status
	if !CanTransition(from, VersionStatusRejected) {
		return c, &TransitionError{VersionNumber: versionNumber, From: from, To: VersionStatusRejected}
	}

	out := c.clone()
	ts := now.UTC()
	out.Versions[idx].Status = VersionStatusRejected
	out.Versions[idx].RejectedAt = &ts
	if reason = strings.TrimSpace(reason); reason != "" {
		out.Versions[idx].RejectionReason = reason
	}
	out.UpdatedAt = ts
	return out, nil
}

// SetComparingStatus marks a version as comparing and makes it current.
func (c ContentItem) SetComparingStatus(versionNumber int) (ContentItem, error) {
	idx, ok := c.FindVersion(versionNumber)
	if !ok {
		return c, fmt.Errorf("%w: %d", ErrVersionNotFound, versionNumber)
	}

	from := c.Versions[idx].Status
	if from != VersionStatusComparing && !CanTransition(from, VersionStatusComparing) {
		return c, &TransitionError{VersionNumber: versionNumber, From: from, To: VersionStatusComparing}
	}

	out := c.clone()
	out.Versions[idx].Status = VersionStatusComparing
	out.CurrentVersionIndex = &idx
	return out, nil
}

// SetCurrentVersion points CurrentVersionIndex at the given version without
// changing any status.
func (c ContentItem) SetCurrentVersion(versionNumber int) (ContentItem, error) {
	idx, ok := c.FindVersion(versionNumber)
	if !ok {
		return c, fmt.Errorf("%w: %d", ErrVersionNotFound, versionNumber)
	}

	out := c.clone()
	out.CurrentVersionIndex = &idx
	return out, nil
}

// PruneVersions keeps every published version plus the keepCount most
// recently created non-published versions. Ties on CreatedAt are broken by
// the higher version number. The remainder is sorted by version number and
// the current index follows its version, or is cleared if that version was
// dropped.
func (c ContentItem) PruneVersions(keepCount int) ContentItem {
	if keepCount < 0 {
		keepCount = 0
	}

	var published, others []ContentVersion
	for _, v := range c.Versions {
		if v.Status == VersionStatusPublished {
			published = append(published, v)
		} else {
			others = append(others, v)
		}
	}

	sort.SliceStable(others, func(i, j int) bool {
		if !others[i].CreatedAt.Equal(others[j].CreatedAt) {
			return others[i].CreatedAt.After(others[j].CreatedAt)
		}
		return others[i].VersionNumber > others[j].VersionNumber
	})
	if len(others) > keepCount {
		others = others[:keepCount]
	}

	kept := make([]ContentVersion, 0, len(published)+len(others))
	kept = append(kept, published...)
	kept = append(kept, others...)
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].VersionNumber < kept[j].VersionNumber
	})

	current, hasCurrent := c.CurrentVersion()

	out := c.clone()
	out.Versions = kept
	out.LastVersionNumber = c.nextVersionNumber() - 1
	out.CurrentVersionIndex = nil
	if hasCurrent {
		if idx, ok := out.FindVersion(current.VersionNumber); ok {
			out.CurrentVersionIndex = &idx
		}
	}
	return out
}

// PromoteVersion makes the given version the published one. Draft and
// comparing versions are published directly. A rejected version is never
// moved backwards: its content is copied into a new version, which is then
// published, and the rejected version keeps its status.
func (c ContentItem) PromoteVersion(versionNumber int, maxVersions int, now time.Time) (ContentItem, error) {
	source, err := c.Version(versionNumber)
	if err != nil {
		return c, err
	}

	if source.Status != VersionStatusRejected {
		return c.PublishVersion(versionNumber, now)
	}

	added, err := c.AddVersion(VersionData{
		Status:       VersionStatusDraft,
		ProviderUsed: source.ProviderUsed,
		PromptUsed:   source.PromptUsed,
		Content:      source.Content,
		Metadata:     source.Metadata,
	}, maxVersions, now)
	if err != nil {
		return c, err
	}

	return added.PublishVersion(added.LastVersionNumber, now)
}

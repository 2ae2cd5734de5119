package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestItem(t *testing.T) ContentItem {
	t.Helper()
	item, err := NewContentItem(uuid.New(), ContentTypeCourse, "Intro to Thermodynamics", nil)
	require.NoError(t, err)
	return *item
}

func draft(provider ProviderName, content string) VersionData {
	return VersionData{
		ProviderUsed: provider,
		PromptUsed:   "Write a course",
		Content:      content,
		Metadata:     GenerationMetadata{TokensUsed: 42, DurationMs: 1200, ModelName: "m"},
	}
}

// addN appends n draft versions, each one minute after the previous.
func addN(t *testing.T, item ContentItem, n int) ContentItem {
	t.Helper()
	for i := 0; i < n; i++ {
		var err error
		item, err = item.AddVersion(draft(ProviderGemini, "body"), DefaultMaxVersions,
			baseTime.Add(time.Duration(len(item.Versions))*time.Minute))
		require.NoError(t, err)
	}
	return item
}

func countPublished(item ContentItem) int {
	n := 0
	for _, v := range item.Versions {
		if v.Status == VersionStatusPublished {
			n++
		}
	}
	return n
}

func TestAddVersion(t *testing.T) {
	t.Parallel()

	t.Run("assigns sequential numbers and leaves current untouched", func(t *testing.T) {
		t.Parallel()
		item := newTestItem(t)

		updated, err := item.AddVersion(draft(ProviderClaude, "first"), DefaultMaxVersions, baseTime)
		require.NoError(t, err)
		updated, err = updated.AddVersion(draft(ProviderGemini, "second"), DefaultMaxVersions, baseTime)
		require.NoError(t, err)

		require.Len(t, updated.Versions, 2)
		assert.Equal(t, 1, updated.Versions[0].VersionNumber)
		assert.Equal(t, 2, updated.Versions[1].VersionNumber)
		assert.Equal(t, VersionStatusDraft, updated.Versions[1].Status)
		assert.Equal(t, baseTime, updated.Versions[0].CreatedAt)
		assert.Nil(t, updated.CurrentVersionIndex)
		assert.Empty(t, item.Versions, "receiver must not be modified")
	})

	t.Run("fails at the ceiling without touching versions", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), DefaultMaxVersions)
		require.Len(t, item.Versions, 20)

		updated, err := item.AddVersion(draft(ProviderGemini, "one too many"), DefaultMaxVersions, baseTime)
		require.ErrorIs(t, err, ErrVersionLimitExceeded)
		assert.Len(t, updated.Versions, 20)
		assert.Len(t, item.Versions, 20)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		t.Parallel()
		_, err := newTestItem(t).AddVersion(draft(ProviderGemini, "  "), DefaultMaxVersions, baseTime)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("rejects terminal initial status", func(t *testing.T) {
		t.Parallel()
		data := draft(ProviderGemini, "x")
		data.Status = VersionStatusPublished
		_, err := newTestItem(t).AddVersion(data, DefaultMaxVersions, baseTime)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("numbers keep increasing after pruning the newest", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 3)
		pruned := item.PruneVersions(0)
		require.Empty(t, pruned.Versions)

		again, err := pruned.AddVersion(draft(ProviderGemini, "after prune"), DefaultMaxVersions, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 4, again.Versions[0].VersionNumber)
	})
}

func TestPublishVersion(t *testing.T) {
	t.Parallel()

	t.Run("demotes the previously published version", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 3)
		item, err := item.PublishVersion(2, baseTime)
		require.NoError(t, err)

		later := baseTime.Add(time.Hour)
		item, err = item.PublishVersion(3, later)
		require.NoError(t, err)

		v2, _ := item.Version(2)
		v3, _ := item.Version(3)
		assert.Equal(t, VersionStatusDraft, v2.Status)
		assert.Nil(t, v2.PublishedAt)
		assert.Equal(t, VersionStatusPublished, v3.Status)
		require.NotNil(t, v3.PublishedAt)
		assert.Equal(t, later, *v3.PublishedAt)
		require.NotNil(t, item.CurrentVersionIndex)
		assert.Equal(t, 2, *item.CurrentVersionIndex)
		current, ok := item.CurrentVersion()
		require.True(t, ok)
		assert.Equal(t, 3, current.VersionNumber)
	})

	t.Run("never more than one published version", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 5)
		for _, n := range []int{1, 4, 2, 2, 5, 3, 1} {
			var err error
			item, err = item.PublishVersion(n, baseTime)
			require.NoError(t, err)
			assert.Equal(t, 1, countPublished(item))
			require.NoError(t, item.Validate())
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		_, err := addN(t, newTestItem(t), 1).PublishVersion(7, baseTime)
		assert.ErrorIs(t, err, ErrVersionNotFound)
	})

	t.Run("rejected version cannot be published", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 1)
		item, err := item.RejectVersion(1, "", baseTime)
		require.NoError(t, err)

		_, err = item.PublishVersion(1, baseTime)
		var terr *TransitionError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, VersionStatusRejected, terr.From)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestRejectVersion(t *testing.T) {
	t.Parallel()

	item := addN(t, newTestItem(t), 2)
	item, err := item.SetCurrentVersion(2)
	require.NoError(t, err)

	rejected, err := item.RejectVersion(1, "  too short ", baseTime)
	require.NoError(t, err)

	v1, _ := rejected.Version(1)
	assert.Equal(t, VersionStatusRejected, v1.Status)
	assert.Equal(t, "too short", v1.RejectionReason)
	require.NotNil(t, v1.RejectedAt)
	assert.Equal(t, 1, *rejected.CurrentVersionIndex)

	_, err = rejected.RejectVersion(1, "again", baseTime)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = rejected.RejectVersion(9, "", baseTime)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	published, err := rejected.PublishVersion(2, baseTime)
	require.NoError(t, err)
	_, err = published.RejectVersion(2, "", baseTime)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetComparingStatus(t *testing.T) {
	t.Parallel()

	item := addN(t, newTestItem(t), 2)
	comparing, err := item.SetComparingStatus(2)
	require.NoError(t, err)

	v2, _ := comparing.Version(2)
	assert.Equal(t, VersionStatusComparing, v2.Status)
	assert.Equal(t, 1, *comparing.CurrentVersionIndex)

	again, err := comparing.SetComparingStatus(2)
	require.NoError(t, err)
	assert.Equal(t, 1, *again.CurrentVersionIndex)

	published, err := comparing.PublishVersion(2, baseTime)
	require.NoError(t, err)
	_, err = published.SetComparingStatus(2)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPruneVersions(t *testing.T) {
	t.Parallel()

	t.Run("keeps published plus most recent", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 6)
		item, err := item.PublishVersion(1, baseTime)
		require.NoError(t, err)

		pruned := item.PruneVersions(2)
		var numbers []int
		for _, v := range pruned.Versions {
			numbers = append(numbers, v.VersionNumber)
		}
		assert.Equal(t, []int{1, 5, 6}, numbers)
		require.NotNil(t, pruned.CurrentVersionIndex)
		assert.Equal(t, 0, *pruned.CurrentVersionIndex)
		assert.Len(t, item.Versions, 6)
	})

	t.Run("published survives any keep count", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 4)
		item, err := item.PublishVersion(3, baseTime)
		require.NoError(t, err)

		for _, keep := range []int{-1, 0, 1, 10} {
			pruned := item.PruneVersions(keep)
			published, ok := pruned.PublishedVersion()
			require.True(t, ok, "keep=%d", keep)
			assert.Equal(t, 3, published.VersionNumber)
		}
	})

	t.Run("equal timestamps fall back to version number", func(t *testing.T) {
		t.Parallel()
		item := newTestItem(t)
		for i := 0; i < 4; i++ {
			var err error
			item, err = item.AddVersion(draft(ProviderClaude, "same instant"), DefaultMaxVersions, baseTime)
			require.NoError(t, err)
		}

		pruned := item.PruneVersions(2)
		require.Len(t, pruned.Versions, 2)
		assert.Equal(t, 3, pruned.Versions[0].VersionNumber)
		assert.Equal(t, 4, pruned.Versions[1].VersionNumber)
	})

	t.Run("current index cleared when its version is dropped", func(t *testing.T) {
		t.Parallel()
		item := addN(t, newTestItem(t), 3)
		item, err := item.SetCurrentVersion(1)
		require.NoError(t, err)

		pruned := item.PruneVersions(1)
		assert.Nil(t, pruned.CurrentVersionIndex)
	})
}

func TestPromoteVersion(t *testing.T) {
	t.Parallel()

	item := addN(t, newTestItem(t), 2)
	item, err := item.PublishVersion(2, baseTime)
	require.NoError(t, err)
	item, err = item.RejectVersion(1, "off topic", baseTime)
	require.NoError(t, err)

	promoted, err := item.PromoteVersion(1, DefaultMaxVersions, baseTime.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, promoted.Versions, 3)
	v1, _ := promoted.Version(1)
	v2, _ := promoted.Version(2)
	v3, _ := promoted.Version(3)
	assert.Equal(t, VersionStatusRejected, v1.Status, "history is never rewritten")
	assert.Equal(t, VersionStatusDraft, v2.Status)
	assert.Equal(t, VersionStatusPublished, v3.Status)
	assert.Equal(t, v1.Content, v3.Content)
	assert.Equal(t, 1, countPublished(promoted))

	draftPromoted, err := promoted.PromoteVersion(2, DefaultMaxVersions, baseTime)
	require.NoError(t, err)
	assert.Len(t, draftPromoted.Versions, 3, "draft versions are published in place")
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to VersionStatus
		want     bool
	}{
		{VersionStatusDraft, VersionStatusComparing, true},
		{VersionStatusDraft, VersionStatusPublished, true},
		{VersionStatusDraft, VersionStatusRejected, true},
		{VersionStatusComparing, VersionStatusPublished, true},
		{VersionStatusComparing, VersionStatusRejected, true},
		{VersionStatusComparing, VersionStatusDraft, false},
		{VersionStatusPublished, VersionStatusDraft, false},
		{VersionStatusPublished, VersionStatusRejected, false},
		{VersionStatusRejected, VersionStatusDraft, false},
		{VersionStatusRejected, VersionStatusPublished, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

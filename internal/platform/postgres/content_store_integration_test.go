//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseURLEnv names the database the integration tests migrate and
// write to. The tests are skipped when it is unset.
const testDatabaseURLEnv = "COURSEGEN_TEST_DATABASE_URL"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("Skipping Postgres integration test. Set %s to run", testDatabaseURLEnv)
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database connection failed")
	require.NoError(t, Migrate(ctx, db, "up", nil))
	return db
}

func TestPostgresContentStoreIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewPostgresContentStore(db, nil)

	item := itemWithVersions(t, 2)
	require.NoError(t, s.Create(ctx, item))
	t.Cleanup(func() { _ = s.Delete(context.Background(), item.ID) })

	loaded, err := s.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, loaded.Title)
	assert.Equal(t, 1, loaded.Revision)
	require.Len(t, loaded.Versions, 2)
	assert.Equal(t, "Question 1", loaded.Versions[1].Content)
	assert.Equal(t, 10, loaded.Versions[1].Metadata.TokensUsed)

	published, err := loaded.PublishVersion(2, fixedTime)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, &published))
	assert.Equal(t, 2, published.Revision)

	// loaded still carries revision 1.
	rejected, err := loaded.RejectVersion(1, "outdated", fixedTime)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx, &rejected), store.ErrConflict)

	items, err := s.ListBySubject(ctx, item.SubjectID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	current, ok := items[0].CurrentVersion()
	require.True(t, ok)
	assert.Equal(t, domain.VersionStatusPublished, current.Status)
	assert.Equal(t, 2, current.VersionNumber)

	require.NoError(t, s.Delete(ctx, item.ID))
	_, err = s.GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, store.ErrContentNotFound)
}

package db

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoset/internal/testutil"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNewDBAppliesBaselineSchema(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)

	for _, table := range []string{"images", "categories", "annotations"} {
		var name string
		err := d.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
		assert.Equal(t, table, name)
	}
}

func TestNewDBAppliesPragmas(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)

	var journalMode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, d.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestNewDBIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.db")

	d1, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	// Reopening the same file must not fail on the existing schema.
	d2, err := NewDB(path)
	require.NoError(t, err)
	defer d2.Close()

	_, err = d2.Exec("INSERT INTO images (image_id, width, height) VALUES (1, 2, 3)")
	require.NoError(t, err)
}

func writeMigrations(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	up := `CREATE TABLE IF NOT EXISTS extras (id INTEGER PRIMARY KEY, note TEXT);`
	down := `DROP TABLE IF EXISTS extras;`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_extras.up.sql"), []byte(up), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_extras.down.sql"), []byte(down), 0644))
	return dir
}

func TestMigrateUpDown(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)
	dir := writeMigrations(t)

	require.NoError(t, d.MigrateUp(dir))

	version, dirty, err := d.MigrateVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	_, err = d.Exec("INSERT INTO extras (note) VALUES ('hi')")
	require.NoError(t, err)

	// Up again is a no-op.
	require.NoError(t, d.MigrateUp(dir))

	require.NoError(t, d.MigrateDown(dir))
	var name string
	err = d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='extras'").Scan(&name)
	require.Error(t, err)
}

func TestMigrateVersionBeforeAnyMigration(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)
	dir := writeMigrations(t)

	version, dirty, err := d.MigrateVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestAttachAdminRoutesBackup(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)
	_, err := d.Exec("INSERT INTO images (image_id, width, height) VALUES (1, 4, 3)")
	require.NoError(t, err)

	mux := http.NewServeMux()
	d.AttachAdminRoutes(mux)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/debug/backup"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestAttachAdminRoutesTailsql(t *testing.T) {
	t.Parallel()
	d := newTestDB(t)

	mux := http.NewServeMux()
	d.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewFromDB(db), mock
}

func TestAllocateVersions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE version_counter SET next = next \+ \$1 WHERE id = 1 RETURNING next - \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(100)))

	start, err := store.AllocateVersions(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateVersionsRejectsNonPositive(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.AllocateVersions(context.Background(), 0)
	assert.Error(t, err)
}

func TestPersistEmptyBatchSkipsTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	err := store.Persist(context.Background(), persistence.Batch{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistCommitsUpsertsDeletesAndArchive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO current_tokens`).
		WithArgs("/a/1", int64(1), "", int64(0), float64(0), []byte("x")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM current_tokens WHERE name = \$1`).
		WithArgs("/a/0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO archived_tokens`).
		WithArgs("/__ARCHIVE__/a/0", int64(1), "", int64(0), float64(0), []byte(nil)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := persistence.Batch{
		CurrentUpserts: []token.Token{{Name: "/a/1", Version: 1, Data: []byte("x")}},
		CurrentDeletes: []string{"/a/0"},
		ArchiveInserts: []token.Token{{Name: "/__ARCHIVE__/a/0", Version: 1}},
	}
	require.NoError(t, store.Persist(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO current_tokens`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	batch := persistence.Batch{CurrentUpserts: []token.Token{{Name: "/a/1", Version: 1}}}
	err := store.Persist(context.Background(), batch)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAll(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"name", "version", "owner", "expiration", "priority", "data"}).
		AddRow("/a/1", int64(1), "", int64(0), float64(0), []byte("x")).
		AddRow("/b/1", int64(2), "w1", int64(123), float64(5), []byte(nil))
	mock.ExpectQuery(`SELECT name, version, owner, expiration, priority, data FROM current_tokens ORDER BY name`).
		WillReturnRows(rows)

	got, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/a/1", got[0].Name)
	assert.Equal(t, "w1", got[1].Owner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadArchiveEscapesLikeWildcards(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"name", "version", "owner", "expiration", "priority", "data"})
	mock.ExpectQuery(`SELECT name, version, owner, expiration, priority, data FROM archived_tokens WHERE name LIKE \$1 ORDER BY name`).
		WithArgs(`/workflow/my\_job%`).
		WillReturnRows(rows)

	_, err := store.ReadArchive(context.Background(), "/workflow/my_job")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

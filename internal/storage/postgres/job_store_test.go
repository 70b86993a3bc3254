package postgres

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

func ptr[T any](v T) *T { return &v }

func newMockStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewJobStoreWithPool(mock, "jobs")
	require.NoError(t, err)
	return store, mock
}

func TestNewJobStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewJobStoreWithPool(mock, "jobs; DROP TABLE jobs")
	require.Error(t, err)
	_, err = NewJobStoreWithPool(nil, "jobs")
	require.Error(t, err)

	store, err := NewJobStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "jobs", store.table)
}

func TestInsertJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	job := crawler.Job{
		ID:                  "29001234",
		Field:               "apaJ_2ja_LuF",
		Region:              "CifL_Rzy_Mku",
		Description:         "Go developer",
		VisaSponsor:         ptr(true),
		Experience:          ptr(3),
		Swedish:             crawler.SwedishLikely,
		Skills:              []string{"Go", "C, C++"},
		Education:           ptr("Bachelor"),
		LastApplicationDate: ptr(int64(1740787199000)),
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.ID,
			job.Region,
			job.Field,
			job.Description,
			job.VisaSponsor,
			job.Experience,
			ptr("likely"),
			"Go,C  C++",
			job.Education,
			job.LastApplicationDate,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDuplicate(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := store.Insert(context.Background(), crawler.Job{ID: "a"})
	require.ErrorIs(t, err, crawler.ErrDuplicateJob)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)")).
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiffNewChunksAndKeepsOrder(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%03d", i)
	}
	query := regexp.QuoteMeta("SELECT id FROM jobs WHERE id = ANY($1)")
	mock.ExpectQuery(query).
		WithArgs(ids[:100]).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("id-000").AddRow("id-099"))
	mock.ExpectQuery(query).
		WithArgs(ids[100:]).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("id-149"))

	fresh, err := store.DiffNew(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, fresh, 147)
	require.Equal(t, "id-001", fresh[0])
	require.Equal(t, "id-148", fresh[len(fresh)-1])
	require.NotContains(t, fresh, "id-099")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiffNewEmpty(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	fresh, err := store.DiffNew(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM jobs WHERE field = $1 AND region = $2")).
		WithArgs("1", "2").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("A").AddRow("B"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jobs WHERE id = ANY($1)")).
		WithArgs([]string{"B"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	deleted, err := store.PurgeExpired(context.Background(), []string{"A", "C"}, "1", "2")
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredNothingListed(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	deleted, err := store.PurgeExpired(context.Background(), []string{}, "1", "2")
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredNothingExpired(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id FROM jobs").
		WithArgs("1", "2").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("A"))

	deleted, err := store.PurgeExpired(context.Background(), []string{"A"}, "1", "2")
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchScansRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	filter := crawler.SearchFilter{Field: "f", Region: "r"}
	query, args := BuildSearchQuery("jobs", filter)

	var (
		noBool   *bool
		noInt    *int
		noString *string
		noDate   *int64
	)
	rows := pgxmock.NewRows([]string{
		"id", "field", "region", "description", "visa_sponsor", "experience",
		"swedish", "skills", "education", "last_application_date",
	}).
		AddRow("a", "f", "r", "desc", ptr(true), ptr(2), ptr("likely"), ptr("Go,SQL"), ptr("Master"), ptr(int64(42))).
		AddRow("b", "f", "r", "desc", noBool, noInt, noString, noString, noString, noDate)
	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(args...).WillReturnRows(rows)

	jobs, err := store.Search(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, crawler.SwedishLikely, jobs[0].Swedish)
	require.Equal(t, []string{"Go", "SQL"}, jobs[0].Skills)
	require.Equal(t, 2, *jobs[0].Experience)
	require.Equal(t, int64(42), *jobs[0].LastApplicationDate)
	require.Equal(t, crawler.SwedishUnknown, jobs[1].Swedish)
	require.Equal(t, []string{}, jobs[1].Skills)
	require.Nil(t, jobs[1].VisaSponsor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchWithoutFieldSkipsQuery(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	jobs, err := store.Search(context.Background(), crawler.SearchFilter{Region: "r"})
	require.NoError(t, err)
	require.Equal(t, []crawler.Job{}, jobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS jobs (")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

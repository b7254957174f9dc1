package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func articleRows(ids ...uuid.UUID) *pgxmock.Rows {
	rows := pgxmock.NewRows(articleColumns)
	for i, id := range ids {
		rows.AddRow(
			id.String(), "Title", "title-"+id.String()[:8], "<p>body</p>", "body", "", "image",
			"local", "news", "Reporter One", "Springfield", int64(10-i), true, createdAt, createdAt,
		)
	}
	return rows
}

func TestStore_GetByID(t *testing.T) {
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(articleRows(id))

	a, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, domain.MediaKindImage, a.MediaKind)
	assert.Equal(t, "Springfield", a.Locality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetBySlugNotFound(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE slug = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SlugExists(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1)")).
		WithArgs("storm").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.SlugExists(context.Background(), "storm")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListPublished(t *testing.T) {
	mock, store := newMock(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles WHERE published = $1")).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE published = $1 ORDER BY created_at DESC, id LIMIT 2 OFFSET 2")).
		WithArgs(true).
		WillReturnRows(articleRows(ids...))

	articles, total, err := store.ListPublished(context.Background(), pagination.OffsetRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, articles, 2)
	assert.Equal(t, ids[0], articles[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_IncrementViews(t *testing.T) {
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET view_count = view_count + 1 WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET view_count = view_count + 1 WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.IncrementViews(context.Background(), id))
	assert.ErrorIs(t, store.IncrementViews(context.Background(), id), apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TopViewed(t *testing.T) {
	mock, store := newMock(t)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles ORDER BY view_count DESC, created_at DESC LIMIT 3")).
		WillReturnRows(articleRows(ids...))

	ranked, err := store.TopViewed(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(10), ranked[0].ViewCount)
	assert.Equal(t, int64(8), ranked[2].ViewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ViewSummary(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count", "published", "views"}).AddRow(int64(4), int64(3), int64(10)))

	sum, err := store.ViewSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Articles)
	assert.Equal(t, int64(3), sum.PublishedArticles)
	assert.Equal(t, int64(10), sum.TotalViews)
	assert.InDelta(t, 2.5, sum.AverageViews, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTxCommitsArticleAndAudit(t *testing.T) {
	mock, store := newMock(t)
	a := domain.Article{ID: uuid.New(), Title: "Title", Slug: "title", CreatedAt: createdAt, UpdatedAt: createdAt}
	entry := domain.NewAuditEntry("reporter-1", domain.AuditPublish, domain.OutcomeSuccess, "title", createdAt)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO articles").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(entry.ID, pgxmock.AnyArg(), "publish", "success", "title", "", createdAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		if err := tx.InsertArticle(context.Background(), a); err != nil {
			return err
		}
		return tx.AppendAudit(context.Background(), entry)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTxSlugViolation(t *testing.T) {
	mock, store := newMock(t)
	a := domain.Article{ID: uuid.New(), Title: "Title", Slug: "title"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "articles_slug_key"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertArticle(context.Background(), a)
	})
	assert.ErrorIs(t, err, storage.ErrSlugTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTxOtherUniqueViolation(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "articles_pkey"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertArticle(context.Background(), domain.Article{ID: uuid.New(), Slug: "x"})
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSlugTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTxAuditFailureRollsBack(t *testing.T) {
	mock, store := newMock(t)
	a := domain.Article{ID: uuid.New(), Title: "Title", Slug: "title"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE articles").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		if err := tx.UpdateArticle(context.Background(), a); err != nil {
			return err
		}
		return tx.AppendAudit(context.Background(), domain.NewAuditEntry("", domain.AuditEdit, domain.OutcomeSuccess, "", createdAt))
	})
	assert.ErrorContains(t, err, "failed to append audit entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateMissingArticle(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE articles").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx storage.Tx) error {
		return tx.UpdateArticle(context.Background(), domain.Article{ID: uuid.New()})
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthChecker(t *testing.T) {
	assert.True(t, NewHealthChecker(fakePinger{}).Healthy(context.Background()))
	assert.False(t, NewHealthChecker(fakePinger{err: errors.New("down")}).Healthy(context.Background()))
	assert.False(t, NewHealthChecker(nil).Healthy(context.Background()))
}

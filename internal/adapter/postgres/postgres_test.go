package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestEnsureSchemaRunsEveryStatement(t *testing.T) {
	mock := newMock(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, EnsureSchema(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS crawl_runs").WillReturnError(errors.New("permission denied"))

	err := EnsureSchema(context.Background(), mock)
	assert.EqualError(t, err, "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrawlRunCreateAndFinish(t *testing.T) {
	mock := newMock(t)
	repo := NewCrawlRunRepo(mock)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(time.Minute)
	run := &entity.CrawlRun{
		ID:        "4f1c7a52-5a0e-4b8e-9f0d-2d8f7c1e9a10",
		SeedURL:   "https://example.com",
		Mode:      entity.ModeWebsite,
		MaxDepth:  2,
		Status:    entity.RunRunning,
		StartedAt: started,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crawl_runs")).
		WithArgs(run.ID, "https://example.com", "website", 2, entity.RunRunning, started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(context.Background(), run))

	run.Status = entity.RunCompleted
	run.PageCount = 3
	run.FinishedAt = &finished
	mock.ExpectExec(regexp.QuoteMeta("UPDATE crawl_runs SET")).
		WithArgs(run.ID, entity.RunCompleted, 3, 0, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Finish(context.Background(), run))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrawlRunFinishUnknownRun(t *testing.T) {
	mock := newMock(t)
	repo := NewCrawlRunRepo(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE crawl_runs SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := repo.Finish(context.Background(), &entity.CrawlRun{ID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCrawlRunFindByID(t *testing.T) {
	mock := newMock(t)
	repo := NewCrawlRunRepo(mock)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("FROM crawl_runs")).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "seed_url", "mode", "max_depth", "status", "page_count", "failure_count", "error", "started_at", "finished_at",
		}).AddRow("run-1", "https://example.com/sitemap.xml", "sitemap", 0, entity.RunCompleted, 12, 1, "", started, &finished))

	run, err := repo.FindByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ModeSitemap, run.Mode)
	assert.Equal(t, 12, run.PageCount)
	assert.Equal(t, 1, run.FailureCount)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrawlRunFindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCrawlRunRepo(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM crawl_runs")).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCrawlFailuresSaveAndFind(t *testing.T) {
	mock := newMock(t)
	repo := NewCrawlFailureRepo(mock)
	failures := []entity.PageFailure{
		{URL: "https://example.com/a", Stage: entity.StageDiscover, Reason: "timeout"},
		{URL: "https://example.com/b", Stage: entity.StageExtract, Reason: "net::ERR_NAME_NOT_RESOLVED"},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crawl_failures")).
		WithArgs("run-1",
			[]string{"https://example.com/a", "https://example.com/b"},
			[]string{entity.StageDiscover, entity.StageExtract},
			[]string{"timeout", "net::ERR_NAME_NOT_RESOLVED"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	require.NoError(t, repo.SaveAll(context.Background(), "run-1", failures))

	mock.ExpectQuery(regexp.QuoteMeta("FROM crawl_failures")).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"url", "stage", "reason"}).
			AddRow(failures[0].URL, failures[0].Stage, failures[0].Reason).
			AddRow(failures[1].URL, failures[1].Stage, failures[1].Reason))
	got, err := repo.FindByRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, failures, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrawlFailuresSaveAllSkipsEmpty(t *testing.T) {
	mock := newMock(t)
	require.NoError(t, NewCrawlFailureRepo(mock).SaveAll(context.Background(), "run-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgePagesUpsert(t *testing.T) {
	mock := newMock(t)
	repo := NewKnowledgePageRepo(mock)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pages := []entity.KnowledgePage{
		{ChatbotID: "bot", URL: "https://example.com/a", Content: "alpha", CharCount: 5, ExtractedAt: at},
		{ChatbotID: "bot", URL: "https://example.com/b", Content: "beta", CharCount: 4, ExtractedAt: at},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO knowledge_pages")).
		WithArgs(
			[]string{"bot", "bot"},
			[]string{"https://example.com/a", "https://example.com/b"},
			[]string{"alpha", "beta"},
			[]int32{5, 4},
			[]time.Time{at, at},
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, repo.SaveAll(context.Background(), pages))
	require.NoError(t, mock.ExpectationsWereMet())
}
